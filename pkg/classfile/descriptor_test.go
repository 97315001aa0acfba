package classfile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daimatz/tinyjvm/pkg/classfile"
)

func TestParseMethodDescriptor(t *testing.T) {
	tests := []struct {
		desc   string
		params []string
		ret    string
		slots  int
	}{
		{"()V", nil, "V", 0},
		{"(II)I", []string{"I", "I"}, "I", 2},
		{"(JD)V", []string{"J", "D"}, "V", 4},
		{"([Ljava/lang/String;)V", []string{"[Ljava/lang/String;"}, "V", 1},
		{"(BCFSZ[[I)Ljava/lang/Object;", []string{"B", "C", "F", "S", "Z", "[[I"}, "Ljava/lang/Object;", 6},
		{"(Ljava/util/Map;J)[J", []string{"Ljava/util/Map;", "J"}, "[J", 3},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			d, err := classfile.ParseMethodDescriptor(tt.desc)
			require.NoError(t, err)
			var params []string
			for _, p := range d.Params {
				params = append(params, p.String())
			}
			require.Equal(t, tt.params, params)
			require.Equal(t, tt.ret, d.Return.String())
			require.Equal(t, tt.slots, d.Slots())
		})
	}
}

func TestParseMethodDescriptorErrors(t *testing.T) {
	for _, desc := range []string{"", "I", "(I", "(Q)V", "(L;)V", "(Ljava/lang/String)V", "()", "()VV", "(I)II"} {
		_, err := classfile.ParseMethodDescriptor(desc)
		require.ErrorIs(t, err, classfile.ErrClassFormat, "descriptor %q", desc)
	}
}

func TestParseFieldDescriptor(t *testing.T) {
	ft, err := classfile.ParseFieldDescriptor("[[D")
	require.NoError(t, err)
	require.Equal(t, 2, ft.Dims)
	require.Equal(t, byte('D'), ft.Base)
	require.True(t, ft.IsArray())
	require.True(t, ft.IsReference())
	require.False(t, ft.IsWide())

	ft, err = classfile.ParseFieldDescriptor("J")
	require.NoError(t, err)
	require.True(t, ft.IsWide())

	ft, err = classfile.ParseFieldDescriptor("Ljava/lang/String;")
	require.NoError(t, err)
	require.Equal(t, "java/lang/String", ft.ClassName)

	_, err = classfile.ParseFieldDescriptor("II")
	require.ErrorIs(t, err, classfile.ErrClassFormat)
}
