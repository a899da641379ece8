package lock

import "sync"

// Keyed serializa secciones críticas por clave (ej. itemID). El almacén de documentos
// no ofrece transacciones entre entidades, así que la secuencia leer-decidir-escribir
// de los motores de reserva/traslado debe ejecutarse bajo exclusión mutua por artículo.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyed construye el candado por clave.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*entry)}
}

// Lock bloquea la clave. Debe emparejarse con Unlock de la misma clave.
func (k *Keyed) Lock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock libera la clave y descarta la entrada cuando nadie más la espera.
func (k *Keyed) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if ok {
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
	}
	k.mu.Unlock()

	if ok {
		e.mu.Unlock()
	}
}

// Do ejecuta fn bajo el candado de la clave.
func (k *Keyed) Do(key string, fn func() error) error {
	k.Lock(key)
	defer k.Unlock(key)
	return fn()
}
