package domain

type RoomCategory string

const (
	CategoryMixed      RoomCategory = "mixed"
	CategoryDesignated RoomCategory = "designated" // permanently female-only
	CategorySwing      RoomCategory = "swing"      // female-only until converted per date
)

// Room is static reference data, loaded from the catalog at startup and
// immutable during normal operation.
type Room struct {
	ID       string
	Name     string
	Capacity int
	Category RoomCategory
	// BasePriceCents is the nightly price per bed, in centavos.
	BasePriceCents int64
	// BufferBeds are held back from sale to absorb OTA sync latency.
	BufferBeds int
}

// Catalog indexes rooms by id.
type Catalog struct {
	rooms []Room
	byID  map[string]Room
}

func NewCatalog(rooms []Room) *Catalog {
	byID := make(map[string]Room, len(rooms))
	for _, r := range rooms {
		byID[r.ID] = r
	}
	return &Catalog{rooms: rooms, byID: byID}
}

func (c *Catalog) All() []Room { return c.rooms }

func (c *Catalog) Get(id string) (Room, error) {
	r, ok := c.byID[id]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	return r, nil
}
