package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMasker_MasksCaseInsensitively(t *testing.T) {
	req := require.New(t)
	masker, err := NewMasker([]string{"badword", "worse"}, '*')
	req.NoError(err)

	req.Equal("this ******* stays hidden", masker.Mask("this BadWord stays hidden"))
	req.Equal("even ***** things", masker.Mask("even WORSE things"))
}

func TestMasker_PreservesCleanContent(t *testing.T) {
	req := require.New(t)
	masker, err := NewMasker([]string{"badword"}, '*')
	req.NoError(err)

	clean := "nothing to see here"
	req.Equal(clean, masker.Mask(clean))
	req.Equal("", masker.Mask(""))
}

func TestMasker_MasksMultipleOccurrences(t *testing.T) {
	req := require.New(t)
	masker, err := NewMasker([]string{"no"}, '#')
	req.NoError(err)

	req.Equal("## means ##", masker.Mask("no means NO"))
}
