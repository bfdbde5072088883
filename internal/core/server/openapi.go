package server

import (
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/lee-tech/hrportal/internal/core/utils"
)

const bearerScheme = "bearerAuth"

var pathParamPattern = regexp.MustCompile(`\{([^}:]+)(:[^}]*)?\}`)

// BuildOpenAPI compiles the recorded routes and schema types into an OpenAPI 3 document.
func BuildOpenAPI(title, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: title, Version: version},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{},
			SecuritySchemes: openapi3.SecuritySchemes{
				bearerScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
			},
		},
		Security: *openapi3.NewSecurityRequirements().With(openapi3.NewSecurityRequirement().Authenticate(bearerScheme)),
	}

	schemas := registeredSchemas()
	keys := make([]string, 0, len(schemas))
	for key := range schemas {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		ref, err := openapi3gen.NewSchemaRefForValue(schemas[key], doc.Components.Schemas)
		if err != nil {
			continue
		}
		doc.Components.Schemas[key] = ref
	}

	for _, meta := range Routes() {
		path := pathParamPattern.ReplaceAllString(meta.Path, "{$1}")
		item := doc.Paths.Value(path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(path, item)
		}
		for _, method := range meta.Methods {
			item.SetOperation(strings.ToUpper(method), buildOperation(meta, path, doc.Components.Schemas))
		}
	}
	return doc
}

func buildOperation(meta RouteMeta, path string, schemas openapi3.Schemas) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.Summary = meta.Summary
	op.Description = meta.Description
	op.Tags = meta.Tags
	if meta.Name != "" {
		op.OperationID = meta.Name
	}
	if meta.Anonymous {
		op.Security = openapi3.NewSecurityRequirements()
	}

	for _, match := range pathParamPattern.FindAllStringSubmatch(path, -1) {
		op.AddParameter(openapi3.NewPathParameter(match[1]).WithSchema(openapi3.NewStringSchema()))
	}

	if meta.RequestBody != nil && !meta.RequestBody.IsIgnored {
		body := openapi3.NewRequestBody().WithRequired(meta.RequestBody.Required)
		if meta.RequestBody.Description != "" {
			body.Description = meta.RequestBody.Description
		}
		body.Content = bodyContent(meta.RequestBody, schemas)
		op.RequestBody = &openapi3.RequestBodyRef{Value: body}
	}

	responses := openapi3.NewResponses()
	codes := make([]int, 0, len(meta.Responses))
	for code := range meta.Responses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		bodyMeta := meta.Responses[code]
		if bodyMeta.IsIgnored {
			continue
		}
		description := bodyMeta.Description
		if description == "" {
			description = http.StatusText(code)
		}
		resp := openapi3.NewResponse().WithDescription(description)
		resp.Content = bodyContent(&bodyMeta, schemas)
		responses.Set(strconv.Itoa(code), &openapi3.ResponseRef{Value: resp})
	}
	op.Responses = responses
	return op
}

func bodyContent(meta *BodyMeta, schemas openapi3.Schemas) openapi3.Content {
	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	media := openapi3.NewMediaType()
	if meta.ModelKey != "" {
		if _, ok := schemas[meta.ModelKey]; ok {
			media.Schema = openapi3.NewSchemaRef("#/components/schemas/"+meta.ModelKey, nil)
		}
	}
	if media.Schema == nil {
		media.Schema = openapi3.NewObjectSchema().NewRef()
	}
	if meta.Example != nil {
		media.Example = meta.Example
	}
	return openapi3.Content{contentType: media}
}

func (a *HTTPApp) serveOpenAPI(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, BuildOpenAPI(a.Config.ServiceName, a.Config.ServiceVersion))
}
