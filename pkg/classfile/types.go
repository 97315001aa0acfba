package classfile

// AccessFlags is the access_flags bit mask of a class or member.
type AccessFlags uint16

const (
	AccPublic    AccessFlags = 0x0001
	AccPrivate   AccessFlags = 0x0002
	AccProtected AccessFlags = 0x0004
	AccStatic    AccessFlags = 0x0008
	AccFinal     AccessFlags = 0x0010
	AccSuper     AccessFlags = 0x0020
	AccNative    AccessFlags = 0x0100
	AccInterface AccessFlags = 0x0200
	AccAbstract  AccessFlags = 0x0400
)

func (f AccessFlags) IsPublic() bool    { return f&AccPublic != 0 }
func (f AccessFlags) IsStatic() bool    { return f&AccStatic != 0 }
func (f AccessFlags) IsNative() bool    { return f&AccNative != 0 }
func (f AccessFlags) IsInterface() bool { return f&AccInterface != 0 }
func (f AccessFlags) IsAbstract() bool  { return f&AccAbstract != 0 }

var flagNames = []struct {
	flag AccessFlags
	name string
}{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccNative, "native"},
	{AccInterface, "interface"},
	{AccAbstract, "abstract"},
}

// Names returns the java keywords for the set bits, in declaration order.
func (f AccessFlags) Names() []string {
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}

// Class is a parsed class file. It is not linked to its superclass or
// interfaces; that happens lazily when the class is first used.
type Class struct {
	MinorVersion uint16
	MajorVersion uint16
	Pool         ConstantPool
	AccessFlags  AccessFlags
	Name         string
	// SuperName is "" for the root class.
	SuperName  string
	Interfaces []string
	Fields     []Member
	Methods    []Member
	Attributes []Attribute
}

// Member is a field or a method; both share the same layout in the file.
type Member struct {
	AccessFlags AccessFlags
	Name        string
	Descriptor  string
	Attributes  []Attribute
}

// Attribute is a named raw attribute payload.
type Attribute struct {
	Name string
	Data []byte
}

// CodeAttribute is the decoded header and bytecode of a "Code" attribute.
// The exception table and nested attributes are not decoded.
type CodeAttribute struct {
	MaxStack  uint16
	MaxLocals uint16
	Code      []byte
}

// Attribute returns the first attribute with the given name.
func (m *Member) Attribute(name string) (Attribute, bool) {
	for _, a := range m.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// FindMethod finds a method by name and descriptor.
func (c *Class) FindMethod(name, descriptor string) *Member {
	return findMember(c.Methods, name, descriptor)
}

// FindField finds a field by name and descriptor.
func (c *Class) FindField(name, descriptor string) *Member {
	return findMember(c.Fields, name, descriptor)
}

func findMember(members []Member, name, descriptor string) *Member {
	for i := range members {
		if members[i].Name == name && members[i].Descriptor == descriptor {
			return &members[i]
		}
	}
	return nil
}
