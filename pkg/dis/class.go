package dis

import (
	"fmt"
	"io"
	"strings"

	"github.com/daimatz/tinyjvm/pkg/classfile"
)

// Class is the listing of a whole class file.
type Class struct {
	Name       string   `json:"name"`
	Super      string   `json:"super,omitempty"`
	Interfaces []string `json:"interfaces,omitempty"`
	Version    string   `json:"version"`
	Flags      []string `json:"flags,omitempty"`
	Constants  int      `json:"constants"`
	Fields     []Member `json:"fields,omitempty"`
	Methods    []Member `json:"methods,omitempty"`
}

// Member is a field or method. Only methods with a Code attribute carry
// instructions.
type Member struct {
	Flags      []string      `json:"flags,omitempty"`
	Name       string        `json:"name"`
	Descriptor string        `json:"descriptor"`
	MaxStack   int           `json:"max_stack,omitempty"`
	MaxLocals  int           `json:"max_locals,omitempty"`
	Code       []Instruction `json:"code,omitempty"`
}

// List disassembles every method of cf.
func List(cf *classfile.Class) (*Class, error) {
	c := &Class{
		Name:       cf.Name,
		Super:      cf.SuperName,
		Interfaces: cf.Interfaces,
		Version:    fmt.Sprintf("%d.%d", cf.MajorVersion, cf.MinorVersion),
		Flags:      cf.AccessFlags.Names(),
		Constants:  cf.Pool.Usable(),
	}
	for _, f := range cf.Fields {
		c.Fields = append(c.Fields, Member{
			Flags:      f.AccessFlags.Names(),
			Name:       f.Name,
			Descriptor: f.Descriptor,
		})
	}
	for i := range cf.Methods {
		m := &cf.Methods[i]
		lm := Member{
			Flags:      m.AccessFlags.Names(),
			Name:       m.Name,
			Descriptor: m.Descriptor,
		}
		if _, ok := m.Attribute("Code"); ok {
			code, err := m.Code()
			if err != nil {
				return nil, err
			}
			if lm.Code, err = Disassemble(code.Code, cf.Pool); err != nil {
				return nil, fmt.Errorf("%s%s: %w", m.Name, m.Descriptor, err)
			}
			lm.MaxStack = int(code.MaxStack)
			lm.MaxLocals = int(code.MaxLocals)
		}
		c.Methods = append(c.Methods, lm)
	}
	return c, nil
}

// Print writes one instruction per line.
func Print(instructions []Instruction, w io.Writer) {
	for _, ins := range instructions {
		fmt.Fprintf(w, "    %s\n", ins)
	}
}

// PrintClass writes the listing in javap's layout.
func PrintClass(c *Class, w io.Writer) {
	header := prefix(c.Flags) + "class " + c.Name
	if c.Super != "" {
		header += " extends " + c.Super
	}
	if len(c.Interfaces) > 0 {
		header += " implements " + strings.Join(c.Interfaces, ", ")
	}
	fmt.Fprintln(w, header)
	fmt.Fprintf(w, "  version: %s\n", c.Version)
	fmt.Fprintf(w, "  constants: %d\n", c.Constants)
	fmt.Fprintln(w, "{")
	for _, f := range c.Fields {
		fmt.Fprintf(w, "  %s%s %s;\n\n", prefix(f.Flags), f.Descriptor, f.Name)
	}
	for _, m := range c.Methods {
		fmt.Fprintf(w, "  %s%s%s;\n", prefix(m.Flags), m.Name, m.Descriptor)
		if m.Code != nil {
			fmt.Fprintln(w, "    Code:")
			fmt.Fprintf(w, "      stack=%d, locals=%d\n", m.MaxStack, m.MaxLocals)
			for _, ins := range m.Code {
				fmt.Fprintf(w, "      %s\n", ins)
			}
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "}")
}

func prefix(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	return strings.Join(flags, " ") + " "
}
