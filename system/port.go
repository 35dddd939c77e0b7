package system

import (
	"errors"
	"fmt"
)

// PortRole tells which side of a connection a port sits on.
type PortRole int

const (
	// RequestPort initiates transactions (a "master" port).
	RequestPort PortRole = iota
	// ResponsePort serves transactions (a "slave" port).
	ResponsePort
)

func (r PortRole) String() string {
	if r == RequestPort {
		return "request"
	}
	return "response"
}

var (
	// ErrPortBound is returned when connecting a port that already has a
	// peer.
	ErrPortBound = errors.New("port already connected")

	// ErrPortRole is returned when the two ends of a connection do not form
	// a request/response pair.
	ErrPortRole = errors.New("port role mismatch")
)

// Port is a named endpoint of a configuration object.
type Port struct {
	owner string
	name  string
	role  PortRole

	// vector is set on ports handed out by a VectorPort.
	vector *VectorPort
	peer   *Port
}

// NewPort creates an unbound port. owner is the dotted path of the object
// that owns it, e.g. "system.cpu".
func NewPort(owner, name string, role PortRole) *Port {
	return &Port{owner: owner, name: name, role: role}
}

// Name returns the port's attribute name.
func (p *Port) Name() string {
	return p.name
}

// Role returns the port's role.
func (p *Port) Role() PortRole {
	return p.role
}

// Path returns the dotted path used to reference the port in a simulator
// config script. Elements of a vector port share the vector's path.
func (p *Port) Path() string {
	if p.vector != nil {
		return p.vector.Path()
	}
	return p.owner + "." + p.name
}

// Peer returns the port on the other side of the connection, or nil.
func (p *Port) Peer() *Port {
	return p.peer
}

// Connected reports whether the port has a peer.
func (p *Port) Connected() bool {
	return p.peer != nil
}

// Connect binds a request port to a response port.
func Connect(req, resp *Port) error {
	if req.role != RequestPort || resp.role != ResponsePort {
		return fmt.Errorf("%w: cannot connect %s (%s) to %s (%s)",
			ErrPortRole, req.Path(), req.role, resp.Path(), resp.role)
	}
	if req.peer != nil {
		return fmt.Errorf("%w: %s", ErrPortBound, req.Path())
	}
	if resp.peer != nil {
		return fmt.Errorf("%w: %s", ErrPortBound, resp.Path())
	}

	req.peer = resp
	resp.peer = req

	return nil
}

// VectorPort is a port that accepts any number of connections, such as the
// sides of a crossbar. Each connection uses a fresh element.
type VectorPort struct {
	owner    string
	name     string
	role     PortRole
	elements []*Port
}

// NewVectorPort creates an empty vector port.
func NewVectorPort(owner, name string, role PortRole) *VectorPort {
	return &VectorPort{owner: owner, name: name, role: role}
}

// Path returns the dotted path of the vector.
func (v *VectorPort) Path() string {
	return v.owner + "." + v.name
}

// Next returns a new unbound element.
func (v *VectorPort) Next() *Port {
	p := &Port{
		owner:  v.owner,
		name:   fmt.Sprintf("%s[%d]", v.name, len(v.elements)),
		role:   v.role,
		vector: v,
	}
	v.elements = append(v.elements, p)
	return p
}

// Elements returns the elements handed out so far, in order.
func (v *VectorPort) Elements() []*Port {
	return v.elements
}

// Len returns the number of elements.
func (v *VectorPort) Len() int {
	return len(v.elements)
}

// Edge is one request-to-response connection.
type Edge struct {
	Request  *Port
	Response *Port
}

func (e Edge) String() string {
	return e.Request.Path() + " -> " + e.Response.Path()
}
