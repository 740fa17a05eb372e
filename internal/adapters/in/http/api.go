package http

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"github.com/swaggo/swag"
)

//go:embed openapi.yaml
var openapiYAML []byte

var (
	apiOnce sync.Once
	apiDoc  *openapi3.T
	apiErr  error
)

// swaggerDoc serves the loaded document to echo-swagger.
type swaggerDoc string

func (d swaggerDoc) ReadDoc() string { return string(d) }

// loadAPI parses and validates the embedded OpenAPI document once per process
// and registers it as the swagger UI document.
func loadAPI() (*openapi3.T, error) {
	apiOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(openapiYAML)
		if err != nil {
			apiErr = fmt.Errorf("load openapi document: %w", err)
			return
		}
		if err = doc.Validate(context.Background()); err != nil {
			apiErr = fmt.Errorf("validate openapi document: %w", err)
			return
		}
		raw, err := doc.MarshalJSON()
		if err != nil {
			apiErr = fmt.Errorf("encode openapi document: %w", err)
			return
		}
		swag.Register(swag.Name, swaggerDoc(raw))
		apiDoc = doc
	})
	return apiDoc, apiErr
}

func operation(doc *openapi3.T, path, method string) (*openapi3.Operation, error) {
	item := doc.Paths.Value(path)
	if item == nil {
		return nil, fmt.Errorf("openapi document has no path %s", path)
	}
	op := item.GetOperation(method)
	if op == nil {
		return nil, fmt.Errorf("openapi document has no %s %s", method, path)
	}
	return op, nil
}

func requestBodySchema(doc *openapi3.T, path, method string) (*openapi3.Schema, error) {
	op, err := operation(doc, path, method)
	if err != nil {
		return nil, err
	}
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil, fmt.Errorf("%s %s has no request body", method, path)
	}
	media := op.RequestBody.Value.Content.Get(echo.MIMEApplicationJSON)
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil, errors.New("request body has no json schema")
	}
	return media.Schema.Value, nil
}

func pathParamSchema(doc *openapi3.T, path, method, name string) (*openapi3.Schema, error) {
	op, err := operation(doc, path, method)
	if err != nil {
		return nil, err
	}
	param := op.Parameters.GetByInAndName(openapi3.ParameterInPath, name)
	if param == nil || param.Schema == nil || param.Schema.Value == nil {
		return nil, fmt.Errorf("%s %s has no path parameter %s", method, path, name)
	}
	return param.Schema.Value, nil
}
