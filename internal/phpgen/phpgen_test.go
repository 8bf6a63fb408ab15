package phpgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_String(t *testing.T) {
	t.Parallel()
	f := NewFile(`App\Sdk\SDK\Requests\Users`)
	c := f.AddClass("GetUser")
	c.Extends = `Saloon\Http\Request`
	f.AddUse(c.Extends)
	f.AddUse(`Saloon\Enums\Method`)
	c.Comment = "GetUser\n\nFetch one user"

	prop := c.AddProperty("method")
	prop.Visibility = Protected
	prop.Type = `Saloon\Enums\Method`
	prop.Value = "Method::GET"

	ctor := c.AddMethod("__construct")
	id := ctor.AddPromotedParameter("id")
	id.Visibility = Protected
	id.Type = "int"
	fields := ctor.AddPromotedParameter("fields")
	fields.Visibility = Protected
	fields.Type = "string"
	fields.Nullable = true
	fields.Default = "null"

	c.AddMethod("resolveEndpoint").AddBody(`return "/users/{$this->id}";`).ReturnType = "string"

	want := `<?php

namespace App\Sdk\SDK\Requests\Users;

use Saloon\Enums\Method;
use Saloon\Http\Request;

/**
 * GetUser
 *
 * Fetch one user
 */
class GetUser extends Request
{
	protected Method $method = Method::GET;

	public function __construct(
		protected int $id,
		protected ?string $fields = null,
	) {
	}

	public function resolveEndpoint(): string
	{
		return "/users/{$this->id}";
	}
}
`
	assert.Equal(t, want, f.String())
}

func TestFile_AddUse(t *testing.T) {
	t.Parallel()
	f := NewFile(`App\Sdk\SDK\Requests\Request`)
	f.AddClass("Request")

	assert.Equal(t, "HttpRequest", f.AddUse(`Saloon\Http\Request`), "clashes with the declared class")
	assert.Equal(t, "HttpRequest", f.AddUse(`\Saloon\Http\Request`), "repeat imports are stable")
	assert.Equal(t, "Other", f.AddUse(`App\Sdk\SDK\Requests\Request\Other`), "same namespace needs no import")
	assert.Equal(t, "SpatieData", f.AddUseAs(`Spatie\LaravelData\Data`, "SpatieData"))

	assert.Equal(t, []Use{
		{Name: `Saloon\Http\Request`, Alias: "HttpRequest"},
		{Name: `Spatie\LaravelData\Data`, Alias: "SpatieData"},
	}, f.Uses())
	assert.Contains(t, f.String(), "use Saloon\\Http\\Request as HttpRequest;\n")
}

func TestFile_TypeString(t *testing.T) {
	t.Parallel()
	f := NewFile(`App\Sdk\SDK\Dto`)
	f.AddClass("User")
	f.AddUse(`Saloon\Http\Response`)

	tests := []struct {
		typ      string
		nullable bool
		want     string
	}{
		{"int", false, "int"},
		{"int", true, "?int"},
		{"int|float", true, "int|float|null"},
		{"mixed", true, "mixed"},
		{`App\Sdk\SDK\Dto\Address`, true, "?Address"},
		{`Saloon\Http\Response`, false, "Response"},
		{`Other\Thing`, false, `\Other\Thing`},
		{`?Saloon\Http\Response`, false, "?Response"},
		{"", true, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.TypeString(tt.typ, tt.nullable), tt.typ)
	}
}

func TestPrintMethod_Attributes(t *testing.T) {
	t.Parallel()
	f := NewFile(`App\Sdk\SDK\Dto`)
	c := f.AddClass("User")
	f.AddUse(`Spatie\LaravelData\Attributes\MapName`)
	ctor := c.AddMethod("__construct")
	p := ctor.AddPromotedParameter("firstName")
	p.Type = "string"
	p.Nullable = true
	p.Default = "null"
	p.AddAttribute(`Spatie\LaravelData\Attributes\MapName`, Quote("first_name"))
	tags := ctor.AddPromotedParameter("tags")
	tags.Type = "array"
	tags.Comment = "@var Tag[]"

	out := f.String()
	assert.Contains(t, out, "\t\t#[MapName('first_name')]\n\t\tpublic ?string $firstName = null,\n")
	assert.Contains(t, out, "\t\t/**\n\t\t * @var Tag[]\n\t\t */\n\t\tpublic array $tags,\n")
}

func TestExport(t *testing.T) {
	t.Parallel()
	got := Export(Map{
		{Key: "id", Value: 123},
		{Key: "price", Value: 12.0},
		{Key: "name", Value: "O'Brien"},
		{Key: "tags", Value: []any{"a", true}},
		{Key: "meta", Value: map[string]any{}},
		{Key: "dto", Value: Raw("User::class")},
		{Key: "none", Value: nil},
	})
	want := `[
    'id' => 123,
    'price' => 12.0,
    'name' => 'O\'Brien',
    'tags' => [
        'a',
        true,
    ],
    'meta' => [],
    'dto' => User::class,
    'none' => null,
]`
	require.Equal(t, want, got)
	assert.Equal(t, "[\n        1,\n    ]", ExportIndent([]any{1}, 1))
}
