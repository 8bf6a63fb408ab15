package phpgen

import "fmt"

type Visibility string

const (
	Public    Visibility = "public"
	Protected Visibility = "protected"
	Private   Visibility = "private"
)

type Class struct {
	Name       string
	Extends    string
	Implements []string
	Traits     []string
	Comment    string
	Properties []*Property
	Methods    []*Method
}

func (c *Class) AddImplement(name string) *Class {
	c.Implements = append(c.Implements, name)
	return c
}

func (c *Class) AddTrait(name string) *Class {
	c.Traits = append(c.Traits, name)
	return c
}

func (c *Class) AddProperty(name string) *Property {
	p := &Property{Name: name, Visibility: Public}
	c.Properties = append(c.Properties, p)
	return p
}

func (c *Class) AddMethod(name string) *Method {
	m := &Method{Name: name, Visibility: Public}
	c.Methods = append(c.Methods, m)
	return m
}

// Method returns the method with the given name, or nil.
func (c *Class) Method(name string) *Method {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

type Property struct {
	Name       string
	Type       string
	Nullable   bool
	Visibility Visibility
	Static     bool
	// Value is a PHP expression; empty means no initializer.
	Value   string
	Comment string
}

type Method struct {
	Name       string
	Visibility Visibility
	Static     bool
	ReturnType string
	Comment    string
	Params     []*Parameter
	Body       []string
}

// AddBody appends a formatted line (or several, separated by newlines) to
// the method body.
func (m *Method) AddBody(format string, args ...any) *Method {
	if len(args) > 0 {
		format = fmt.Sprintf(format, args...)
	}
	m.Body = append(m.Body, format)
	return m
}

func (m *Method) AddParameter(name string) *Parameter {
	p := &Parameter{Name: name}
	m.Params = append(m.Params, p)
	return p
}

// AddPromotedParameter adds a constructor parameter that also declares a
// property.
func (m *Method) AddPromotedParameter(name string) *Parameter {
	p := &Parameter{Name: name, Promoted: true, Visibility: Public}
	m.Params = append(m.Params, p)
	return p
}

// Parameter returns the parameter with the given name, or nil.
func (m *Method) Parameter(name string) *Parameter {
	for _, p := range m.Params {
		if p.Name == name {
			return p
		}
	}
	return nil
}

type Parameter struct {
	Name     string
	Type     string
	Nullable bool
	// Default is a PHP expression; empty means the parameter is required.
	Default    string
	Promoted   bool
	Visibility Visibility
	Attributes []Attribute
	Comment    string
}

// HasDefault reports whether the parameter is optional.
func (p *Parameter) HasDefault() bool { return p.Default != "" }

func (p *Parameter) AddAttribute(name string, args ...string) *Parameter {
	p.Attributes = append(p.Attributes, Attribute{Name: name, Args: args})
	return p
}

// Attribute is a PHP 8 attribute. Args are PHP expressions.
type Attribute struct {
	Name string
	Args []string
}
