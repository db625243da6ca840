// Package docs registers the generated swagger spec with swag's global
// registry so pkg/scalar can serve it via swag.ReadDoc() without a
// second source of truth for the schema.
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
        "/v1/groups/{group_id}/photos": {
            "post": {
                "description": "Accepts a single image upload, stores it content-addressed, inserts a photo row, and enqueues processing. Duplicate content for the same group short-circuits without a new upload.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["ingest"],
                "summary": "Upload a photo",
                "parameters": [
                    {"type": "string", "name": "group_id", "in": "path", "required": true},
                    {"type": "string", "name": "uploader_id", "in": "formData", "required": true},
                    {"type": "file", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "accepted, or duplicate if already ingested (see the status field)"},
                    "400": {"description": "validation error"}
                }
            }
        },
        "/v1/photos/{photo_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ingest"],
                "summary": "Fetch a photo's current state",
                "parameters": [
                    {"type": "string", "name": "photo_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "ok"},
                    "404": {"description": "not found"}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness/readiness check",
                "responses": {
                    "200": {"description": "ok"}
                }
            }
        },
        "/health/detailed": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Component-level health: database, redis, queue depth, stuck photos",
                "responses": {
                    "200": {"description": "healthy or degraded"},
                    "503": {"description": "unhealthy"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported swagger spec fields, registered with
// swag's global instance table on package init, matching the shape
// swag init emits.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Photo Timeline Ingest API",
	Description:      "Ingest, metadata extraction, and meeting clustering for a group's photo timeline.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
