package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/prefs": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["prefs"],
                "summary": "List preferences",
                "parameters": [{"type": "string", "description": "Key prefix", "name": "prefix", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/prefs/{key}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["prefs"],
                "summary": "Get a preference",
                "parameters": [{"type": "string", "description": "Preference key", "name": "key", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["prefs"],
                "summary": "Put a preference",
                "parameters": [
                    {"type": "string", "description": "Preference key", "name": "key", "in": "path", "required": true},
                    {"description": "Value in text form", "name": "value", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.ValueRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["prefs"],
                "summary": "Delete a preference",
                "parameters": [{"type": "string", "description": "Preference key", "name": "key", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/export": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json", "application/yaml", "application/msgpack"],
                "tags": ["snapshot"],
                "summary": "Export the store",
                "parameters": [{"type": "string", "description": "json, yaml or msgpack", "name": "format", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/snapshot.Snapshot"}}}
            }
        },
        "/import": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json", "application/yaml", "application/msgpack"],
                "produces": ["application/json"],
                "tags": ["snapshot"],
                "summary": "Import a snapshot",
                "parameters": [
                    {"type": "string", "description": "json, yaml or msgpack", "name": "format", "in": "query"},
                    {"type": "boolean", "description": "Remove keys missing from the document", "name": "replace", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"type": "string"}
            }
        },
        "api.ValueRequest": {
            "type": "object",
            "properties": {
                "kind": {"type": "string"},
                "value": {"type": "string"},
                "values": {"type": "array", "items": {"type": "string"}}
            }
        },
        "snapshot.Entry": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "kind": {"type": "string"},
                "value": {"type": "string"},
                "values": {"type": "array", "items": {"type": "string"}}
            }
        },
        "snapshot.Snapshot": {
            "type": "object",
            "properties": {
                "store": {"type": "string"},
                "version": {"type": "integer"},
                "taken": {"type": "string"},
                "entries": {"type": "array", "items": {"$ref": "#/definitions/snapshot.Entry"}}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "binaryprefs REST API",
	Description:      "REST API over a binaryprefs preference store.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
