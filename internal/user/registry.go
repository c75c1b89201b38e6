package user

import "sync"

// System is the reserved identity for server-originated chat messages.
const System = "System"

// SystemColor is the fixed neutral color for System messages.
const SystemColor = "#000000"

var palette = []string{
	"#ef4444", // red
	"#f97316", // orange
	"#eab308", // yellow
	"#22c55e", // green
	"#14b8a6", // teal
	"#3b82f6", // blue
	"#8b5cf6", // violet
	"#ec4899", // pink
}

// Registry maps live connections to display names and display names to
// stable colors. Colors are keyed by name, not connection, so the same name
// keeps its color across reconnects for the life of the process. Two
// connections sharing a display name share a color; the registry does not
// disambiguate duplicate names.
type Registry struct {
	mu     sync.Mutex
	names  map[string]string // connection id -> display name
	order  []string          // connection ids in join order
	colors map[string]string // display name -> color
	next   int
}

func NewRegistry() *Registry {
	return &Registry{
		names:  make(map[string]string),
		colors: make(map[string]string),
	}
}

// Register binds a connection to a display name. Idempotent per connection;
// registering the same connection again replaces the name.
func (r *Registry) Register(connID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, known := r.names[connID]; !known {
		r.order = append(r.order, connID)
	}
	r.names[connID] = name
}

// Unregister drops the connection's name binding. The name's color is kept
// so a reconnect under the same name stays consistent.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.names, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Name reports the display name bound to a connection. Unknown connections
// yield ok=false and callers treat them as anonymous.
func (r *Registry) Name(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.names[connID]
	return name, ok
}

// ColorFor returns the stable color for a display name, assigning the next
// palette color on first appearance. The System identity bypasses the
// palette.
func (r *Registry) ColorFor(name string) string {
	if name == System {
		return SystemColor
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if color, ok := r.colors[name]; ok {
		return color
	}
	color := palette[r.next%len(palette)]
	r.next++
	r.colors[name] = color
	return color
}

// Names returns the display names of all registered connections in join
// order, for the lobby-wide connected-users broadcast.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.order))
	for _, id := range r.order {
		names = append(names, r.names[id])
	}
	return names
}
