package generator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/mark3labs/sdkgen/internal/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersSpec() *spec.Specification {
	return &spec.Specification{
		Name:        "Users API",
		Description: "Manage users",
		BaseURL: spec.BaseURL{
			URL:        "https://{region}.example.com/v1",
			Parameters: []spec.Parameter{{Name: "region", Type: "string", Default: "eu"}},
		},
		Endpoints: []spec.Endpoint{
			{
				Name:           "GetUser",
				Method:         spec.GET,
				Description:    "Fetch one user",
				PathSegments:   []string{"users", ":id"},
				Collection:     "Users",
				PathParameters: []spec.Parameter{{Name: "id", Type: "int"}},
				QueryParameters: []spec.Parameter{
					{Name: "fields", Type: "string", Nullable: true, Description: "Fields to include"},
					{Name: "per_page", Type: "int", Nullable: true},
				},
				ResponseDTO:     "User",
				ResponseDTOPath: "data",
			},
			{
				Method:                  spec.GET,
				PathSegments:            []string{"users"},
				Collection:              "Users",
				ResponseDTO:             "User",
				ResponseDTOIsCollection: true,
				ResponseDTOIsPaginated:  true,
			},
			{
				Name:         "CreateUser",
				Method:       spec.POST,
				PathSegments: []string{"users"},
				Collection:   "users",
				BodyParameters: []spec.Parameter{
					{Name: "email", Type: "string"},
					{Name: "display_name", Type: "string", Nullable: true},
					{Name: "profile", Type: "object", Ref: "Profile"},
				},
			},
			{
				Name:         "Ping",
				Method:       spec.GET,
				PathSegments: []string{"ping"},
			},
		},
		Components: &spec.Components{
			Schemas: map[string]*spec.Schema{
				"User": {
					Types:    []string{"object"},
					Title:    "User",
					Required: []string{"id", "email"},
					Properties: map[string]*spec.SchemaOrRef{
						"id":         spec.Inline(&spec.Schema{Types: []string{"integer"}}),
						"email":      spec.Inline(&spec.Schema{Types: []string{"string"}, Format: "email"}),
						"created_at": spec.Inline(&spec.Schema{Types: []string{"string"}, Format: "date-time"}),
						"profile":    spec.RefTo("Profile"),
						"tags": spec.Inline(&spec.Schema{
							Types: []string{"array"},
							Items: spec.RefTo("Tag"),
						}),
						"address": spec.Inline(&spec.Schema{
							Types: []string{"object"},
							Properties: map[string]*spec.SchemaOrRef{
								"city": spec.Inline(&spec.Schema{Types: []string{"string"}}),
							},
						}),
					},
				},
				"Profile": {
					Types: []string{"object"},
					Properties: map[string]*spec.SchemaOrRef{
						"bio": spec.Inline(&spec.Schema{Types: []string{"string"}}),
					},
				},
				"Tag": {
					Types:    []string{"object"},
					Required: []string{"name"},
					Properties: map[string]*spec.SchemaOrRef{
						"name": spec.Inline(&spec.Schema{Types: []string{"string"}}),
					},
				},
				"Status": {Types: []string{"string"}, Enum: []any{"active", "inactive"}},
			},
			SecuritySchemes: map[string]spec.SecurityScheme{
				"bearerAuth": {Type: spec.SecurityHTTP, Scheme: "bearer"},
			},
		},
	}
}

func testConfig() Config {
	return NewConfig("Users API", `Acme\Users`, WithIgnoredQueryParams("per_page"))
}

func runGenerator(t *testing.T, sp *spec.Specification) GeneratedCode {
	t.Helper()
	code, err := New().Run(context.Background(), testConfig(), sp)
	require.NoError(t, err)
	return code
}

func findFile(t *testing.T, files []OutputFile, path string) OutputFile {
	t.Helper()
	for _, f := range files {
		if f.Path == path {
			return f
		}
	}
	t.Fatalf("no output file %s", path)
	return OutputFile{}
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig("", "")
	assert.Equal(t, "Unnamed", cfg.ConnectorClass())
	assert.Equal(t, `App\Sdk\SDK`, cfg.Namespace)
	assert.Equal(t, `App\Sdk\Tests`, cfg.TestNamespace())

	cfg = testConfig()
	assert.Equal(t, "UsersAPI", cfg.ConnectorClass())
	assert.Equal(t, `Acme\Users\SDK\Dto\User`, cfg.DTOFQN("User"))
	assert.Equal(t, `Acme\Users\SDK\Requests\Users`, cfg.RequestNamespace("Users"))
	assert.Equal(t, "src/SDK/Dto/User.php", cfg.ClassPath(cfg.DTOFQN("User")))
	assert.True(t, cfg.IsDTOType(`?\Acme\Users\SDK\Dto\User`))
	assert.False(t, cfg.IsDTOType("string"))
}

func TestPlanResources(t *testing.T) {
	t.Parallel()

	plans := PlanResources(testConfig(), usersSpec())
	require.Len(t, plans, 2)

	users := plans[0]
	assert.Equal(t, "Users", users.Name)
	assert.Equal(t, "users", users.Accessor)
	require.Len(t, users.Endpoints, 3)
	assert.Equal(t, "GetUser", users.Endpoints[0].RequestClass)
	assert.Equal(t, "getUser", users.Endpoints[0].MethodName)
	assert.Equal(t, "GetUsers", users.Endpoints[1].RequestClass)
	assert.Equal(t, "CreateUser", users.Endpoints[2].RequestClass)

	get := users.Endpoints[0]
	require.Len(t, get.QueryParams, 1, "ignored query params are dropped")
	vars := make([]string, 0)
	for _, p := range get.Params() {
		vars = append(vars, p.Var)
	}
	assert.Equal(t, []string{"id", "fields"}, vars)

	assert.Equal(t, "Resource", plans[1].Name, "endpoints without a collection use the fallback")
}

func TestPlanResources_DuplicateNames(t *testing.T) {
	t.Parallel()

	sp := &spec.Specification{Endpoints: []spec.Endpoint{
		{Name: "fetch", Method: spec.GET, PathSegments: []string{"a"}, Collection: "Things"},
		{Name: "Fetch", Method: spec.GET, PathSegments: []string{"b"}, Collection: "Things"},
		{Name: "Show", Method: spec.GET, PathSegments: []string{"things", ":id", ":id"}, Collection: "Things",
			PathParameters: []spec.Parameter{{Name: "thing id", Type: "string"}}},
	}}
	plans := PlanResources(testConfig(), sp)
	require.Len(t, plans, 1)
	eps := plans[0].Endpoints
	assert.Equal(t, "Fetch", eps[0].RequestClass)
	assert.Equal(t, "Fetch2", eps[1].RequestClass)

	// An undeclared path variable still becomes a parameter, once.
	require.Len(t, eps[2].PathParams, 2)
	assert.Equal(t, "thingId", eps[2].PathParams[0].Var)
	assert.Equal(t, "id", eps[2].PathParams[1].Var)
}

func TestRun_Request(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	files := runGenerator(t, usersSpec()).OutputFiles(cfg)
	got := findFile(t, files, "src/SDK/Requests/Users/GetUser.php")
	assert.Equal(t, GroupRequests, got.Group)

	want := `<?php

namespace Acme\Users\SDK\Requests\Users;

use Acme\Users\SDK\Dto\User;
use Saloon\Enums\Method;
use Saloon\Http\Request;
use Saloon\Http\Response;

/**
 * GetUser
 *
 * Fetch one user
 */
class GetUser extends Request
{
	protected Method $method = Method::GET;

	public function resolveEndpoint(): string
	{
		return "/users/{$this->id}";
	}

	public function __construct(
		protected int $id,
		/**
		 * Fields to include
		 */
		protected ?string $fields = null,
	) {
	}

	public function defaultQuery(): array
	{
		return array_filter([
			'fields' => $this->fields,
		]);
	}

	public function createDtoFromResponse(Response $response): User
	{
		$array = $response->json();

		return User::from($array['data']);
	}
}
`
	assert.Equal(t, want, got.Content)
}

func TestRun_RequestWithBody(t *testing.T) {
	t.Parallel()

	files := runGenerator(t, usersSpec()).OutputFiles(testConfig())
	got := findFile(t, files, "src/SDK/Requests/Users/CreateUser.php").Content

	assert.Contains(t, got, "class CreateUser extends Request implements HasBody\n")
	assert.Contains(t, got, "\tuse HasJsonBody;\n")
	assert.Contains(t, got, "protected Method $method = Method::POST;")
	assert.Contains(t, got, "protected string $email,\n\t\tprotected ?string $displayName,\n\t\tprotected Profile $profile,\n",
		"a nullable parameter followed by a required one keeps its place and gets no default")
	assert.Contains(t, got, "'display_name' => $this->displayName,")
	assert.NotContains(t, got, "createDtoFromResponse")
}

func TestRun_PaginatedRequest(t *testing.T) {
	t.Parallel()

	code := runGenerator(t, usersSpec())
	got := findFile(t, code.OutputFiles(testConfig()), "src/SDK/Requests/Users/GetUsers.php").Content
	assert.Contains(t, got, "public function createDtoFromResponse(Response $response): UserPaginatedResponseDto\n")
	assert.Contains(t, got, "return UserPaginatedResponseDto::from($array);")
	assert.NotContains(t, got, "__construct", "a request without parameters has no constructor")

	_, ok := code.DTO("UserPaginatedResponseDto")
	assert.True(t, ok)
	_, ok = code.DTO(paginationDTO)
	assert.True(t, ok)
}

func TestRun_DTO(t *testing.T) {
	t.Parallel()

	code := runGenerator(t, usersSpec())
	var names []string
	for _, f := range code.DTOs() {
		names = append(names, f.Class.Name)
	}
	assert.Equal(t, []string{
		"PaginatedResponseMetaDto", "Profile", "Tag", "User", "UserAddress", "UserPaginatedResponseDto",
	}, names, "enum schemas do not become classes")

	got := findFile(t, code.OutputFiles(testConfig()), "src/SDK/Dto/User.php").Content
	want := `<?php

namespace Acme\Users\SDK\Dto;

use Spatie\LaravelData\Attributes\MapName;
use Spatie\LaravelData\Data as SpatieData;

/**
 * User
 */
class User extends SpatieData
{
	public function __construct(
		public string $email,
		public int $id,
		public ?UserAddress $address = null,
		#[MapName('created_at')]
		public ?string $createdAt = null,
		public ?Profile $profile = null,
		/**
		 * @var Tag[]
		 */
		public ?array $tags = null,
	) {
	}
}
`
	assert.Equal(t, want, got)
}

func TestRun_ResourceAndConnector(t *testing.T) {
	t.Parallel()

	files := runGenerator(t, usersSpec()).OutputFiles(testConfig())

	resource := findFile(t, files, "src/SDK/Resource/Users.php").Content
	assert.Contains(t, resource, "class Users extends BaseResource\n")
	assert.Contains(t, resource, "\tpublic function getUser(int $id, ?string $fields = null): Response\n")
	assert.Contains(t, resource, "return $this->connector->send(new GetUser($id, $fields));")
	assert.Contains(t, resource, "@param string|null $fields Fields to include")
	assert.Contains(t, resource, "use Acme\\Users\\SDK\\Requests\\Users\\CreateUser;\n")

	connector := findFile(t, files, "src/SDK/UsersAPI.php")
	assert.Equal(t, GroupConnector, connector.Group)
	want := `<?php

namespace Acme\Users\SDK;

use Acme\Users\SDK\Resource\Resource;
use Acme\Users\SDK\Resource\Users;
use Saloon\Contracts\Authenticator;
use Saloon\Http\Auth\TokenAuthenticator;
use Saloon\Http\Connector;

/**
 * Users API
 *
 * Manage users
 */
class UsersAPI extends Connector
{
	public function __construct(
		protected string $token,
		protected string $region = 'eu',
	) {
	}

	public function resolveBaseUrl(): string
	{
		return "https://{$this->region}.example.com/v1";
	}

	protected function defaultAuth(): ?Authenticator
	{
		return new TokenAuthenticator($this->token);
	}

	public function users(): Users
	{
		return new Users($this);
	}

	public function resource(): Resource
	{
		return new Resource($this);
	}
}
`
	assert.Equal(t, want, connector.Content)
}

func TestConnector_AuthSchemes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		scheme spec.SecurityScheme
		want   []string
	}{
		{
			name:   "api key header",
			scheme: spec.SecurityScheme{Type: spec.SecurityAPIKey, Name: "X-Key", In: "header"},
			want:   []string{"protected string $apiKey,", "new HeaderAuthenticator($this->apiKey, 'X-Key')"},
		},
		{
			name:   "api key query",
			scheme: spec.SecurityScheme{Type: spec.SecurityAPIKey, Name: "key", In: "query"},
			want:   []string{"new QueryAuthenticator('key', $this->apiKey)"},
		},
		{
			name:   "basic",
			scheme: spec.SecurityScheme{Type: spec.SecurityHTTP, Scheme: "basic"},
			want:   []string{"protected string $username,", "protected string $password,", "new BasicAuthenticator($this->username, $this->password)"},
		},
		{
			name:   "oauth2",
			scheme: spec.SecurityScheme{Type: spec.SecurityOAuth2},
			want:   []string{"new TokenAuthenticator($this->token)"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			sp := &spec.Specification{
				Name:       "Api",
				BaseURL:    spec.BaseURL{URL: "https://api.example.com"},
				Components: &spec.Components{SecuritySchemes: map[string]spec.SecurityScheme{"auth": tc.scheme}},
			}
			got := buildConnector(testConfig(), sp).String()
			for _, w := range tc.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestConnector_NoAuth(t *testing.T) {
	t.Parallel()

	sp := &spec.Specification{
		Endpoints: []spec.Endpoint{{Name: "Go", Method: spec.GET, PathSegments: []string{"go"}, Collection: "Send"}},
	}
	got := buildConnector(NewConfig("Connector", `Acme`), sp).String()
	assert.NotContains(t, got, "__construct")
	assert.NotContains(t, got, "defaultAuth")
	assert.Contains(t, got, "use Saloon\\Http\\Connector as HttpConnector;")
	assert.Contains(t, got, "class Connector extends HttpConnector")
	assert.Contains(t, got, "return \"\";")
	assert.Contains(t, got, "public function sendResource(): Send", "accessors never shadow connector methods")
}

func TestRun_MissingResponseDTO(t *testing.T) {
	t.Parallel()

	sp := &spec.Specification{
		Endpoints: []spec.Endpoint{{
			Name: "GetWidget", Method: spec.GET, PathSegments: []string{"widgets"}, Collection: "Widgets",
			ResponseDTO: "Widget",
		}},
	}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	code, err := New(WithLogger(logger)).Run(context.Background(), testConfig(), sp)
	require.NoError(t, err)

	require.Len(t, code.Issues(), 1)
	issue := code.Issues()[0]
	assert.Equal(t, "request", issue.Stage)
	assert.Equal(t, "GetWidget::createDtoFromResponse", issue.Artifact)
	var missing *missingDTOError
	assert.True(t, errors.As(issue, &missing))
	assert.Contains(t, logs.String(), "artifact skipped")

	// The request itself is still generated, without the factory.
	require.Len(t, code.Requests(), 1)
	assert.Nil(t, code.Requests()[0].Class.Method("createDtoFromResponse"))
}

func TestRun_StageError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	failing := StageFunc{StageName: "failing", Fn: func(context.Context, Input, GeneratedCode) (GeneratedCode, error) {
		return GeneratedCode{}, boom
	}}
	extra := StageFunc{StageName: "extra", Fn: func(_ context.Context, _ Input, code GeneratedCode) (GeneratedCode, error) {
		return code.WithFiles(TaggedOutputFile{Tag: "project", Path: "composer.json", Content: "{}"}), nil
	}}
	code, err := New(WithPostProcessors(failing, extra)).Run(context.Background(), testConfig(), usersSpec())
	require.NoError(t, err)

	require.Len(t, code.Issues(), 1)
	assert.ErrorIs(t, code.Issues()[0], boom)
	assert.NotNil(t, code.Connector(), "a failing stage keeps earlier output")
	assert.Len(t, code.FilesWithTag("project"), 1)
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	_, err := New().Run(context.Background(), testConfig(), nil)
	assert.ErrorIs(t, err, ErrNoSpecification)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New().Run(ctx, testConfig(), usersSpec())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Deterministic(t *testing.T) {
	t.Parallel()

	a := runGenerator(t, usersSpec()).OutputFiles(testConfig())
	b := runGenerator(t, usersSpec()).OutputFiles(testConfig())
	assert.Equal(t, a, b)
}

func TestGeneratedCode_With(t *testing.T) {
	t.Parallel()

	base := GeneratedCode{}.WithFiles(TaggedOutputFile{Tag: "a", Path: "b.txt"})
	next := base.WithFiles(TaggedOutputFile{Tag: "a", Path: "a.txt"})
	assert.Len(t, base.Files(), 1, "With methods leave the receiver untouched")
	assert.Len(t, next.Files(), 2)

	files := next.OutputFiles(testConfig())
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].Path)
	assert.Equal(t, GroupProject, files[0].Group)

	tests := GeneratedCode{}.WithFiles(TaggedOutputFile{Path: "tests/Pest.php"}).OutputFiles(testConfig())
	assert.Equal(t, GroupTests, tests[0].Group)
}

func TestRun_ParameterPrecedence(t *testing.T) {
	t.Parallel()

	sp := &spec.Specification{
		Endpoints: []spec.Endpoint{{
			Name:             "UpdateOrder",
			Method:           spec.PUT,
			PathSegments:     []string{"orders", ":id"},
			Collection:       "Orders",
			PathParameters:   []spec.Parameter{{Name: "id", Type: "int", Nullable: true}},
			BodyParameters:   []spec.Parameter{{Name: "note", Type: "string", Nullable: true}},
			QueryParameters:  []spec.Parameter{{Name: "limit", Type: "int"}},
			HeaderParameters: []spec.Parameter{{Name: "X-Trace", Type: "string", Nullable: true}},
		}},
		Components: &spec.Components{},
	}

	plans := PlanResources(testConfig(), sp)
	require.Len(t, plans, 1)
	var vars []string
	var optional []bool
	for _, p := range plans[0].Endpoints[0].Params() {
		vars = append(vars, p.Var)
		optional = append(optional, p.Optional)
	}
	assert.Equal(t, []string{"id", "note", "limit", "xTrace"}, vars)
	assert.Equal(t, []bool{false, false, false, true}, optional)

	files := runGenerator(t, sp).OutputFiles(testConfig())
	request := findFile(t, files, "src/SDK/Requests/Orders/UpdateOrder.php").Content
	assert.Contains(t, request, `	public function __construct(
		protected ?int $id,
		protected ?string $note,
		protected int $limit,
		protected ?string $xTrace = null,
	) {
	}
`)
	resource := findFile(t, files, "src/SDK/Resource/Orders.php").Content
	assert.Contains(t, resource, "\tpublic function updateOrder(?int $id, ?string $note, int $limit, ?string $xTrace = null): Response\n")
	assert.Contains(t, resource, "new UpdateOrder($id, $note, $limit, $xTrace)")
}

func TestRun_ParameterComponentTypes(t *testing.T) {
	t.Parallel()

	sp := &spec.Specification{
		Endpoints: []spec.Endpoint{{
			Name:           "GetUser",
			Method:         spec.GET,
			PathSegments:   []string{"users", ":id"},
			Collection:     "Users",
			PathParameters: []spec.Parameter{{Name: "id", Type: "string", Ref: "UserId"}},
			QueryParameters: []spec.Parameter{
				{Name: "legacy", Ref: "Missing"},
				{Name: "status", Type: "string", Ref: "Status", Nullable: true},
			},
		}},
		Components: &spec.Components{Schemas: map[string]*spec.Schema{
			"UserId": {Types: []string{"string"}, Format: "uuid"},
			"Status": {Types: []string{"string"}, Enum: []any{"active", "inactive"}},
		}},
	}

	got := findFile(t, runGenerator(t, sp).OutputFiles(testConfig()), "src/SDK/Requests/Users/GetUser.php").Content
	assert.Contains(t, got, `return "/users/{$this->id}";`)
	assert.Contains(t, got, `	public function __construct(
		protected string $id,
		protected mixed $legacy,
		protected ?string $status = null,
	) {
	}
`)
	assert.NotContains(t, got, "array $")
}

func TestRun_InlineObjectNamedLikeComponent(t *testing.T) {
	t.Parallel()

	sp := &spec.Specification{
		Components: &spec.Components{Schemas: map[string]*spec.Schema{
			"User": {
				Types: []string{"object"},
				Properties: map[string]*spec.SchemaOrRef{
					"address": spec.Inline(&spec.Schema{
						Types: []string{"object"},
						Properties: map[string]*spec.SchemaOrRef{
							"city": spec.Inline(&spec.Schema{Types: []string{"string"}}),
						},
					}),
				},
			},
			"UserAddress": {
				Types: []string{"object"},
				Properties: map[string]*spec.SchemaOrRef{
					"street": spec.Inline(&spec.Schema{Types: []string{"string"}}),
					"zip":    spec.Inline(&spec.Schema{Types: []string{"string"}}),
				},
			},
		}},
	}

	code := runGenerator(t, sp)
	var names []string
	for _, f := range code.DTOs() {
		names = append(names, f.Class.Name)
	}
	assert.Equal(t, []string{"User", "UserAddress", "UserAddressObject"}, names)

	files := code.OutputFiles(testConfig())
	component := findFile(t, files, "src/SDK/Dto/UserAddress.php").Content
	assert.Contains(t, component, "public ?string $street = null,")
	assert.Contains(t, component, "public ?string $zip = null,")
	assert.NotContains(t, component, "$city")

	assert.Contains(t, findFile(t, files, "src/SDK/Dto/UserAddressObject.php").Content, "public ?string $city = null,")
	assert.Contains(t, findFile(t, files, "src/SDK/Dto/User.php").Content, "public ?UserAddressObject $address = null,")
}

func TestSchemaPHPType_Number(t *testing.T) {
	tests := []struct {
		format, want string
	}{
		{"float", "float"},
		{"double", "int|float"},
		{"", "int|float"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.Equal(t, tt.want, schemaPHPType(&spec.Schema{Types: []string{"number"}, Format: tt.format}))
		})
	}
}
