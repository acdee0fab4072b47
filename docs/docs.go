// Package docs registers the OpenAPI document served under /swagger.
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
        "/layouts/{layoutId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["layouts"],
                "summary": "Get a venue layout",
                "parameters": [
                    {"type": "string", "name": "layoutId", "in": "path", "required": true},
                    {"type": "string", "name": "event_id", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/admin/layouts/{layoutId}/cache": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["layouts"],
                "summary": "Drop a cached layout",
                "parameters": [
                    {"type": "string", "name": "layoutId", "in": "path", "required": true},
                    {"type": "string", "name": "event_id", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/holds": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["holds"],
                "summary": "Hold seats",
                "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}
            }
        },
        "/holds/{holdId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["holds"],
                "summary": "Get a hold",
                "parameters": [{"type": "string", "name": "holdId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["holds"],
                "summary": "Release a hold",
                "parameters": [{"type": "string", "name": "holdId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/charts/sessions": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["charts"],
                "summary": "Open a chart session",
                "responses": {"201": {"description": "Created"}, "404": {"description": "Not Found"}}
            }
        },
        "/charts/sessions/{sessionId}": {
            "get": {
                "tags": ["charts"],
                "summary": "Session state",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["charts"],
                "summary": "Close a session",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/charts/sessions/{sessionId}/frame": {
            "get": {
                "tags": ["charts"],
                "summary": "Render frame",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/charts/sessions/{sessionId}/events": {
            "get": {
                "produces": ["text/event-stream"],
                "tags": ["charts"],
                "summary": "Stream session events",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/charts/sessions/{sessionId}/tap": {
            "post": {
                "tags": ["charts"],
                "summary": "Tap the chart",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/charts/sessions/{sessionId}/seats": {
            "post": {
                "tags": ["charts"],
                "summary": "Toggle a seat",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}, "422": {"description": "Unprocessable Entity"}}
            },
            "put": {
                "tags": ["charts"],
                "summary": "Replace the selection",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/charts/sessions/{sessionId}/gestures": {
            "post": {
                "tags": ["charts"],
                "summary": "Apply a pointer, touch or zoom gesture",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/charts/sessions/{sessionId}/focus": {
            "post": {
                "tags": ["charts"],
                "summary": "Center on a section",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/charts/sessions/{sessionId}/clear": {
            "post": {
                "tags": ["charts"],
                "summary": "Clear the selection",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/charts/sessions/{sessionId}/hold/extend": {
            "post": {
                "tags": ["charts"],
                "summary": "Extend the hold countdown",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            }
        },
        "/charts/sessions/{sessionId}/checkout": {
            "post": {
                "tags": ["charts"],
                "summary": "Hold the selected seats",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}, "503": {"description": "Service Unavailable"}}
            }
        },
        "/charts/sessions/{sessionId}/booked": {
            "post": {
                "tags": ["charts"],
                "summary": "Mark the held seats booked",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/charts/deltas": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["charts"],
                "summary": "Inject a seat status delta",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Seatchart API",
	Description:      "Interactive seating charts: seat selection, viewport gestures, holds and live seat status.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
