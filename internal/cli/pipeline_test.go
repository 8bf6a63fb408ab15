package cli

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalSpecYAML = `openapi: 3.0.3
info:
  title: Test API
  version: "1.0.0"
servers:
  - url: https://api.example.com
paths:
  /users/{id}:
    get:
      operationId: GetUser
      tags: [Users]
      parameters:
        - name: id
          in: path
          required: true
          schema: { type: integer }
      responses:
        '200':
          description: ok
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/User'
components:
  schemas:
    User:
      type: object
      required: [id]
      properties:
        id: { type: integer }
        email: { type: string, format: email }
`

func writeSpec(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalSpecYAML), 0o600))
	return dir, path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func generateArgs(specPath, outDir string, extra ...string) []string {
	args := []string{"generate", specPath, "--type", "openapi", "--name", "Test", "--namespace", `Acme\Test`, "--output", outDir}
	return append(args, extra...)
}

func TestGeneratePipeline_DryRun(t *testing.T) {
	t.Parallel()
	dir, specPath := writeSpec(t)
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, generateArgs(specPath, outDir, "--dry")...)
	require.NoError(t, err)

	assert.Contains(t, out, "Planned writes to "+outDir)
	assert.Contains(t, out, "Connector:\n- src/SDK/Test.php\n")
	assert.Contains(t, out, "Resources:\n- src/SDK/Resource/Users.php\n")
	assert.Contains(t, out, "Requests:\n- src/SDK/Requests/Users/GetUser.php\n")
	assert.Contains(t, out, "DTOs:\n- src/SDK/Dto/User.php\n")
	assert.Contains(t, out, "- tests/Stubs/Users/getUser.json\n")
	assert.Contains(t, out, "Project Files:\n- composer.json\n")

	_, err = os.Stat(outDir)
	assert.True(t, os.IsNotExist(err), "dry runs write nothing")
}

func TestGeneratePipeline_WriteAndProtect(t *testing.T) {
	t.Parallel()
	dir, specPath := writeSpec(t)
	outDir := filepath.Join(dir, "out")
	connector := filepath.Join(outDir, "src", "SDK", "Test.php")
	request := filepath.Join(outDir, "src", "SDK", "Requests", "Users", "GetUser.php")
	composer := filepath.Join(outDir, "composer.json")

	out, err := execute(t, generateArgs(specPath, outDir)...)
	require.NoError(t, err)
	assert.Contains(t, out, "- Created: "+connector+"\n")
	assert.Contains(t, out, "- Created: "+composer+"\n")
	for _, p := range []string{
		request,
		filepath.Join(outDir, "src", "SDK", "Dto", "User.php"),
		filepath.Join(outDir, "tests", "Feature", "UsersTest.php"),
		filepath.Join(outDir, "pint.json"),
	} {
		assert.FileExists(t, p)
	}

	protected := "<?php\n\n/** @sdk-never-override */\nclass Test {}\n"
	require.NoError(t, os.WriteFile(connector, []byte(protected), 0o644))
	require.NoError(t, os.WriteFile(request, []byte("<?php // edited\n"), 0o644))

	out, err = execute(t, generateArgs(specPath, outDir)...)
	require.NoError(t, err)
	assert.Contains(t, out, "- Protected by @sdk-never-override: "+connector+"\n")
	assert.Contains(t, out, "- File already exists: "+request+"\n")

	out, err = execute(t, generateArgs(specPath, outDir, "--force")...)
	require.NoError(t, err)
	assert.Contains(t, out, "- Protected by @sdk-never-override: "+connector+"\n")
	assert.Contains(t, out, "- Created: "+request+"\n")

	got, err := os.ReadFile(connector)
	require.NoError(t, err)
	assert.Equal(t, protected, string(got))
	got, err = os.ReadFile(request)
	require.NoError(t, err)
	assert.Contains(t, string(got), "class GetUser extends Request")
}

func TestGeneratePipeline_Zip(t *testing.T) {
	t.Parallel()
	dir, specPath := writeSpec(t)
	outDir := filepath.Join(dir, "out")
	archive := filepath.Join(outDir, "Test_sdk.zip")

	out, err := execute(t, generateArgs(specPath, outDir, "--zip")...)
	require.NoError(t, err)
	assert.Contains(t, out, "- Wrote file to ZIP: src/SDK/Test.php\n")
	assert.Contains(t, out, "- Created zip archive: "+archive+"\n")

	zr, err := zip.OpenReader(archive)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "src/SDK/Requests/Users/GetUser.php")
	assert.Contains(t, names, "composer.json")

	out, err = execute(t, generateArgs(specPath, outDir, "--zip")...)
	require.NoError(t, err)
	assert.Contains(t, out, "- Zip archive already exists: "+archive)
}

func TestGeneratePipeline_PestSuite(t *testing.T) {
	t.Parallel()
	dir, specPath := writeSpec(t)
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, generateArgs(specPath, outDir, "--dry", "--test-framework", "pest")...)
	require.NoError(t, err)
	assert.Contains(t, out, "- tests/Pest.php\n")
	assert.Contains(t, out, "- tests/UsersTest.php\n")
	assert.NotContains(t, out, "phpunit.xml")
}

func TestGeneratePipeline_InputErrors(t *testing.T) {
	t.Parallel()
	dir, specPath := writeSpec(t)

	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant string
	}{
		{
			name: "file format as type",
			args: []string{"generate", specPath, "--type", "yaml", "--output", dir},
			want: []string{
				"No parser registered for --type='yaml'",
				"not the file format",
				"Available types: openapi, postman",
			},
		},
		{
			name:    "unknown type",
			args:    []string{"generate", specPath, "--type", "raml", "--output", dir},
			want:    []string{"No parser registered for --type='raml'", "Available types: openapi, postman"},
			notWant: "not the file format",
		},
		{
			name: "missing file",
			args: []string{"generate", filepath.Join(dir, "nope.yaml"), "--type", "openapi"},
			want: []string{"File not found: "},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := execute(t, tc.args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUsage))
			for _, w := range tc.want {
				assert.Contains(t, err.Error(), w)
			}
			if tc.notWant != "" {
				assert.NotContains(t, err.Error(), tc.notWant)
			}
		})
	}
}

func TestParsersCommand(t *testing.T) {
	t.Parallel()
	out, err := execute(t, "parsers")
	require.NoError(t, err)
	assert.Equal(t, "openapi\npostman\n", out)
}
