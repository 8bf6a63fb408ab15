package e2e

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/sdkgen/internal/cli"
)

const petsSpec = `openapi: 3.0.3
info:
  title: Pet Store
  version: "1.0.0"
servers:
  - url: https://{region}.pets.test/v1
    variables:
      region:
        default: eu
components:
  securitySchemes:
    bearer:
      type: http
      scheme: bearer
  schemas:
    Pet:
      type: object
      required: [id, name]
      properties:
        id: { type: integer, minimum: 1, maximum: 99 }
        name: { type: string }
        tag: { type: string, format: uuid }
        born: { type: string, format: date }
        owner: { $ref: '#/components/schemas/Owner' }
        toys:
          type: array
          items: { $ref: '#/components/schemas/Toy' }
    Owner:
      type: object
      properties:
        email: { type: string, format: email }
        pets:
          type: array
          items: { $ref: '#/components/schemas/Pet' }
    Toy:
      type: object
      required: [label]
      properties:
        label: { type: string }
paths:
  /pets:
    get:
      operationId: ListPets
      tags: [Pets]
      parameters:
        - { name: per_page, in: query, schema: { type: integer } }
        - { name: species, in: query, schema: { type: string } }
      responses:
        '200':
          description: ok
          content:
            application/json:
              schema:
                type: object
                properties:
                  data:
                    type: array
                    items: { $ref: '#/components/schemas/Pet' }
                  meta: { type: object }
    post:
      operationId: CreatePet
      tags: [Pets]
      requestBody:
        content:
          application/json:
            schema: { $ref: '#/components/schemas/Pet' }
      responses:
        '201':
          description: created
          content:
            application/json:
              schema:
                type: object
                properties:
                  data: { $ref: '#/components/schemas/Pet' }
  /pets/{petId}:
    delete:
      operationId: DeletePet
      tags: [Pets]
      parameters:
        - { name: petId, in: path, required: true, schema: { type: integer } }
      responses:
        '204': { description: gone }
  /owners:
    get:
      responses:
        '200':
          description: ok
          content:
            application/json:
              schema:
                type: array
                items: { $ref: '#/components/schemas/Owner' }
`

const ordersCollection = `{
  "info": {"name": "Orders API"},
  "auth": {"type": "bearer"},
  "variable": [{"key": "baseUrl", "value": "https://api.example.com"}],
  "item": [
    {
      "name": "Orders",
      "item": [
        {
          "name": "Get order",
          "request": {"method": "GET", "url": "{{baseUrl}}/orders/:orderId"},
          "response": [{"body": "{\"id\": 7, \"total\": 12.5, \"lines\": [{\"sku\": \"A-1\"}]}"}]
        },
        {
          "name": "Create order",
          "request": {
            "method": "POST",
            "url": "{{baseUrl}}/orders",
            "body": {"mode": "raw", "raw": "{\"sku\": \"A-1\", \"qty\": 2}"}
          }
        }
      ]
    }
  ]
}`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func runCLI(t *testing.T, args ...string) {
	t.Helper()
	root := cli.NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	require.NoError(t, root.Execute(), "cli execute %v", args)
}

// digestDir hashes relative paths and contents of every file under dir.
func digestDir(t *testing.T, dir string) (files []string, sum string) {
	t.Helper()
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)

	h := sha256.New()
	for _, rel := range files {
		b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		require.NoError(t, err)
		_, _ = h.Write([]byte(rel))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(b)
	}
	return files, hex.EncodeToString(h.Sum(nil))
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		file      string
		content   string
		typ       string
		framework string
		want      []string
	}{
		{
			name: "openapi phpunit", file: "pets.yaml", content: petsSpec, typ: "openapi", framework: "phpunit",
			want: []string{
				"src/SDK/PetStore.php",
				"src/SDK/Resource/Pets.php",
				"src/SDK/Requests/Pets/ListPets.php",
				"src/SDK/Dto/PetPaginatedResponseDto.php",
				"tests/Stubs/Pets/listPets.json",
				"tests/Unit/Dto/OwnerTest.php",
				"testbench.yaml",
				"composer.json",
				"pint.json",
			},
		},
		{
			name: "openapi pest", file: "pets.yaml", content: petsSpec, typ: "openapi", framework: "pest",
			want: []string{"tests/Pest.php", "tests/PetsTest.php", "tests/OwnersTest.php"},
		},
		{
			name: "postman", file: "orders.json", content: ordersCollection, typ: "postman", framework: "phpunit",
			want: []string{"src/SDK/Requests/Orders/GetOrder.php", "tests/Feature/OrdersTest.php"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			specPath := writeTemp(t, tc.file, tc.content)
			out1 := filepath.Join(t.TempDir(), "run1")
			out2 := filepath.Join(t.TempDir(), "run2")
			args := func(out string) []string {
				return []string{"generate", specPath, "--type", tc.typ, "--name", "Pet Store",
					"--namespace", `Acme\Pets`, "--output", out, "--test-framework", tc.framework}
			}

			runCLI(t, args(out1)...)
			runCLI(t, args(out2)...)

			files1, sum1 := digestDir(t, out1)
			files2, sum2 := digestDir(t, out2)
			assert.Equal(t, files1, files2)
			assert.Equal(t, sum1, sum2, "two runs produce identical trees")
			for _, w := range tc.want {
				assert.Contains(t, files1, w)
			}
		})
	}
}

func TestGenerate_ZipReproducible(t *testing.T) {
	t.Parallel()

	specPath := writeTemp(t, "pets.yaml", petsSpec)
	out1 := filepath.Join(t.TempDir(), "zip1")
	out2 := filepath.Join(t.TempDir(), "zip2")
	for _, out := range []string{out1, out2} {
		runCLI(t, "generate", specPath, "--type", "openapi", "--name", "PetStore", "--output", out, "--zip")
	}

	a, err := os.ReadFile(filepath.Join(out1, "PetStore_sdk.zip"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(out2, "PetStore_sdk.zip"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerate_ProtectedManifestSurvivesForce(t *testing.T) {
	t.Parallel()

	specPath := writeTemp(t, "pets.yaml", petsSpec)
	out := filepath.Join(t.TempDir(), "sdk")
	args := []string{"generate", specPath, "--type", "openapi", "--name", "PetStore", "--output", out}
	runCLI(t, args...)

	manifest := filepath.Join(out, "composer.json")
	custom := `{
    "name": "acme/hand-tuned",
    "x-sdk-never-override": true,
    "extra": {"laravel": {"providers": ["Acme\\Pets\\ServiceProvider"]}}
}
`
	require.NoError(t, os.WriteFile(manifest, []byte(custom), 0o644))

	pint := filepath.Join(out, "pint.json")
	require.NoError(t, os.WriteFile(pint, []byte(`{"preset": "psr12"}`), 0o644))

	runCLI(t, append(args, "--force")...)

	got, err := os.ReadFile(manifest)
	require.NoError(t, err)
	assert.Equal(t, custom, string(got), "protected manifest is preserved verbatim")

	got, err = os.ReadFile(pint)
	require.NoError(t, err)
	assert.Contains(t, string(got), `"laravel"`, "unprotected manifest is regenerated under --force")
}
