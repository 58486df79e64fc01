// Package docs registers the OpenAPI description of the fixly API with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/historial/{id}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["historial"],
                "summary": "Delete an archived repair",
                "parameters": [
                    {"type": "integer", "description": "Repair id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Master key (or masterKey in the JSON body)", "name": "X-Master-Key", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.okResponse"}},
                    "400": {"description": "bad_id"},
                    "403": {"description": "unauthorized"},
                    "404": {"description": "not_found"},
                    "409": {"description": "not_archived"},
                    "500": {"description": "server_config_error"}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {"200": {"description": "OK"}, "503": {"description": "degraded"}}
            }
        }
    },
    "definitions": {
        "handler.okResponse": {
            "type": "object",
            "properties": {"ok": {"type": "boolean"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Fixly API",
	Description:      "Archived repair deletion and health endpoints.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
