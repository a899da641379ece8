package events

import (
	"sync"

	"github.com/jhoicas/Reservas-api/internal/domain/event"
	"github.com/jhoicas/Reservas-api/pkg/logger"
)

var _ event.Publisher = (*Bus)(nil)

// Bus publicador de eventos de dominio en proceso. Reemplaza el bus de eventos
// global de UI: los suscriptores (caches, proyecciones) se registran de forma
// explícita. Entrega al menos una vez, sin orden garantizado; un suscriptor que
// entra en pánico no tumba al publicador.
type Bus struct {
	mu          sync.RWMutex
	subscribers []func(event.InventoryUpdated)
	log         *logger.Logger
}

// NewBus construye el bus en proceso.
func NewBus(log *logger.Logger) *Bus {
	return &Bus{log: log.Component("events")}
}

// Subscribe registra un manejador para todos los eventos inventory-updated.
func (b *Bus) Subscribe(fn func(event.InventoryUpdated)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
}

// Publish entrega el evento a todos los suscriptores de forma síncrona.
func (b *Bus) Publish(evt event.InventoryUpdated) {
	b.mu.RLock()
	subs := make([]func(event.InventoryUpdated), len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	b.log.Debug().
		Str("item_id", evt.ItemID).
		Str("action", evt.Action).
		Msg("inventory-updated")

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error().Interface("panic", r).Msg("suscriptor de eventos entró en pánico")
				}
			}()
			fn(evt)
		}()
	}
}
