package economy

// ItemDef describes one tradable item as loaded from configuration.
type ItemDef struct {
	Identifier string
	Alias      string
	Category   string
	Currency   string
	// Parent is set on child variants; a child shares its parent's curve
	// and inventory.
	Parent       string
	IncludeInCPI bool

	InitialPrice  Override[float64]
	StartingStock Override[int64]
	RestockAmount Override[int64]
}

// Category groups items for browsing.
type Category struct {
	id      string
	name    string
	members []string
}

// NewCategory returns an empty category.
func NewCategory(id, name string) *Category {
	if name == "" {
		name = id
	}
	return &Category{id: id, name: name}
}

func (c *Category) ID() string          { return c.id }
func (c *Category) DisplayName() string { return c.name }

// Members returns the member identifiers in insertion order.
func (c *Category) Members() []string {
	out := make([]string, len(c.members))
	copy(out, c.members)
	return out
}
