package out

import "context"

// Трансляция событий очереди. Fire-and-forget: ошибка публикации
// логируется вызывающим и никогда не откатывает основной переход.
type BroadcastPort interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}
