package assets

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailTemplatesEmbedded(t *testing.T) {
	for _, name := range []string{"_base.txt", "_base.gohtml", "password_reset.txt", "password_reset.gohtml"} {
		t.Run(name, func(t *testing.T) {
			data, err := fs.ReadFile(FS, "templates/email/"+name)
			require.NoError(t, err)
			assert.NotEmpty(t, data)
		})
	}
}
