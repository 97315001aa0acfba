package classfile

import "errors"

var (
	// ErrClassFormat reports a malformed class file: bad magic, a truncated
	// stream or an unknown constant tag.
	ErrClassFormat = errors.New("class format error")

	// ErrConstantPool reports an index out of range or an entry of the wrong
	// kind at an index that expects a specific kind.
	ErrConstantPool = errors.New("constant pool error")
)
