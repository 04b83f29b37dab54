package ps

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmolero/ComandaDB/core"
)

// initializedKey marks a store whose starter dataset has been written.
const initializedKey = "db_initialized"

// Initialized reports whether the starter dataset has been seeded.
func (s *Store) Initialized() bool {
	if !s.IsInitialized() {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.readKey(initializedKey)
	return exists
}

// Initialize seeds the starter dataset in a single commit: twelve dining
// tables across three zones, the menu categories and products, and two
// default employees. Orders and the other transactional collections start
// empty. Calling Initialize on a seeded store is a no-op.
func (s *Store) Initialize(identity core.Identity) (Transaction, error) {
	if err := s.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.readKey(initializedKey); exists {
		return Transaction{}, nil
	}

	updates := map[string][]byte{
		initializedKey: []byte("true"),
	}

	for name, records := range seedData(time.Now()) {
		data, err := json.Marshal(records)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to marshal seed collection %s: %w", name, err)
		}
		updates[name] = data
	}

	return s.writeKeys(updates, identity, "Seeding starter dataset")
}

func seedData(now time.Time) map[string][]core.Record {
	tables := make([]core.Record, 0, 12)
	for i := 1; i <= 12; i++ {
		zone := "terraza"
		switch {
		case i > 8:
			zone = "barra"
		case i > 4:
			zone = "interior"
		}

		capacity := 4
		if i%4 == 0 {
			capacity = 6
		}

		tables = append(tables, core.Record{
			"id":       float64(i),
			"number":   float64(i),
			"capacity": float64(capacity),
			"zone":     zone,
			"status":   core.TableAvailable,
		})
	}

	categories := []core.Record{
		{"id": float64(1), "name": "Entrantes", "color": "#FF6B6B", "icon": "🥗"},
		{"id": float64(2), "name": "Principales", "color": "#4ECDC4", "icon": "🍽️"},
		{"id": float64(3), "name": "Postres", "color": "#FFE66D", "icon": "🍰"},
		{"id": float64(4), "name": "Bebidas", "color": "#95E1D3", "icon": "🍹"},
	}

	products := []core.Record{
		seedProduct(1, "Ensalada César", "Lechuga, pollo, parmesano", 8.50, 1, 50),
		seedProduct(2, "Nachos con guacamole", "Nachos caseros con guacamole", 6.90, 1, 30),
		seedProduct(3, "Hamburguesa Clásica", "Carne, queso, lechuga, tomate", 12.50, 2, 40),
		seedProduct(4, "Pizza Margarita", "Tomate, mozzarella, albahaca", 11.00, 2, 35),
		seedProduct(5, "Risotto de setas", "Arroz cremoso con setas", 13.50, 2, 25),
		seedProduct(6, "Tarta de queso", "Tarta de queso casera", 5.50, 3, 20),
		seedProduct(7, "Brownie con helado", "Brownie caliente con helado", 6.00, 3, 15),
		seedProduct(8, "Coca-Cola", "33cl", 2.50, 4, 100),
		seedProduct(9, "Cerveza", "33cl", 2.80, 4, 80),
		seedProduct(10, "Vino tinto copa", "Copa de vino tinto", 3.50, 4, 60),
	}

	createdAt := core.Timestamp(now)
	employees := []core.Record{
		{"id": float64(1), "name": "Administrador", "role": core.RoleAdmin, "pin": "1234", "active": float64(1), "created_at": createdAt},
		{"id": float64(2), "name": "Camarero 1", "role": core.RoleWaiter, "pin": "1111", "active": float64(1), "created_at": createdAt},
	}

	return map[string][]core.Record{
		core.CollectionTables:     tables,
		core.CollectionCategories: categories,
		core.CollectionProducts:   products,
		core.CollectionEmployees:  employees,
		core.CollectionOrders:     {},
		core.CollectionOrderItems: {},
		core.CollectionCashEvents: {},
		core.CollectionDigital:    {},
	}
}

func seedProduct(id float64, name, description string, price, categoryID, stock float64) core.Record {
	return core.Record{
		"id":          id,
		"name":        name,
		"description": description,
		"price":       price,
		"category_id": categoryID,
		"stock":       stock,
		"min_stock":   float64(5),
		"available":   float64(1),
	}
}
