package shared

import "github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"

// Rooms is the static dormitory catalog: 38 beds across four rooms.
// Flexible 7 is the swing room (female-only until converted per date).
var Rooms = []domain.Room{
	{ID: "mixto_12a", Name: "Mixto 12A", Capacity: 12, Category: domain.CategoryMixed, BasePriceCents: 6000},
	{ID: "mixto_12b", Name: "Mixto 12B", Capacity: 12, Category: domain.CategoryMixed, BasePriceCents: 6000},
	{ID: "mixto_7", Name: "Mixto 7", Capacity: 7, Category: domain.CategoryMixed, BasePriceCents: 6000},
	{ID: "flexible_7", Name: "Flexible 7", Capacity: 7, Category: domain.CategorySwing, BasePriceCents: 6000},
}

// Catalog applies the configured safety buffer and indexes the rooms.
func Catalog(cfg Config) *domain.Catalog {
	rooms := make([]domain.Room, len(Rooms))
	copy(rooms, Rooms)
	for i := range rooms {
		rooms[i].BufferBeds = cfg.SafetyBuffer
	}
	return domain.NewCatalog(rooms)
}
