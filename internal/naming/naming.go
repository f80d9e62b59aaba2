package naming

import "strings"

// Namer derives query and mutation field names from GraphQL entity type
// names. Entity types are PascalCase ("EpisodeGuest"); derived fields are
// camelCase ("episodeGuests", "createEpisodeGuest").
type Namer struct {
	config Config
}

// New creates a Namer with the given configuration
func New(cfg Config) *Namer {
	return &Namer{config: cfg}
}

// Default returns a Namer with default configuration
func Default() *Namer {
	return New(DefaultConfig())
}

// QueryField returns the single-entity query field name.
// Example: "Episode" -> "episode"
func (n *Namer) QueryField(entityType string) string {
	return lowerFirst(entityType)
}

// ListQueryField returns the list query field name, pluralized.
// Example: "Episode" -> "episodes", "Series" -> "series"
func (n *Namer) ListQueryField(entityType string) string {
	return n.Pluralize(lowerFirst(entityType))
}

// CreateMutation returns the create mutation field name.
// Example: "Episode" -> "createEpisode"
func (n *Namer) CreateMutation(entityType string) string {
	return "create" + entityType
}

// UpdateMutation returns the update mutation field name.
// Example: "Episode" -> "updateEpisode"
func (n *Namer) UpdateMutation(entityType string) string {
	return "update" + entityType
}

// DeleteMutation returns the delete mutation field name.
// Example: "Episode" -> "deleteEpisode"
func (n *Namer) DeleteMutation(entityType string) string {
	return "delete" + entityType
}

// CreateInputType returns the input object type name for a create mutation.
// Example: "Episode" -> "CreateEpisodeInput"
func (n *Namer) CreateInputType(entityType string) string {
	return "Create" + entityType + "Input"
}

// UpdateInputType returns the input object type name for an update mutation.
// Example: "Episode" -> "UpdateEpisodeInput"
func (n *Namer) UpdateInputType(entityType string) string {
	return "Update" + entityType + "Input"
}

// ActionInputType returns the input object type name for a state-machine
// action mutation. Example: "publishEpisode" -> "PublishEpisodeInput"
func (n *Namer) ActionInputType(mutation string) string {
	return upperFirst(mutation) + "Input"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
