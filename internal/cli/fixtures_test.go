package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const testConfig = `
schema: public
types:
  Comment:
    AuthorId: uuid
    Body: string
    Likes: int
  Post:
    Title: string
    Published: bool
    Tags: "[]string"
    Scores: "[]int"
    Comments: "[]Comment"
  User:
    Name: string
documents:
  Post: Post
  User: User
`

const tagsQuery = `
from: "Post"
clauses: [{flatten: "Tags"}, {distinct: true}]
`

const tagsSQL = "select distinct x from (select jsonb_array_elements_text(d.data -> 'Tags') as x from public.mt_doc_post as d) as sub0"

const commentsQuery = `
from: Post
clauses:
  - flatten: Comments
  - where: {field: Likes, op: ">", value: 1}
includes:
  - {type: User, field: AuthorId, alias: u, kind: left}
`

// workspace writes docsql.yaml plus the given query files into a temp dir
// and returns root options pointing at that config.
func workspace(t *testing.T, files map[string]string) (*RootOptions, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docsql.yaml"), []byte(testConfig), 0644))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return &RootOptions{Format: "text", ConfigPath: filepath.Join(dir, "docsql.yaml")}, dir
}

// execute runs cmd with args and returns everything written to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
