package ComandaDB

import (
	"github.com/jmolero/ComandaDB/core"
	"github.com/jmolero/ComandaDB/db"
	"github.com/jmolero/ComandaDB/ps"
)

type Instance struct {
	Store *ps.Store
}

func Open(store *ps.Store) *Instance {
	return &Instance{
		Store: store,
	}
}

// Initialize seeds the starter dataset if the store is still empty.
func (instance *Instance) Initialize(identity core.Identity) error {
	_, err := instance.Store.Initialize(identity)
	return err
}

func (instance *Instance) Engine(identity core.Identity) *db.Engine {
	return db.NewEngine(instance.Store, identity)
}
