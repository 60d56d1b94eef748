// docs/docs.go

// Package docs holds the OpenAPI document served under /swagger
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/commands": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Commands"],
                "summary": "List journaled commands",
                "parameters": [
                    {"type": "string", "description": "Filter by command name", "name": "method", "in": "query"},
                    {"enum": ["PENDING", "SUCCEEDED", "FAILED"], "type": "string", "description": "Filter by status", "name": "status", "in": "query"},
                    {"enum": ["CHANNEL", "HTTP"], "type": "string", "description": "Filter by source", "name": "source", "in": "query"},
                    {"type": "integer", "default": 50, "description": "Maximum entries", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Journal entries", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/api/v1/commands/{method}": {
            "post": {
                "description": "Runs a command exactly as the method channel would. Names containing '#' must be URL encoded (%23).",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Commands"],
                "summary": "Execute a bridge command",
                "parameters": [
                    {"type": "string", "example": "connectionStatus", "description": "Command name", "name": "method", "in": "path", "required": true},
                    {"description": "Command arguments", "name": "arguments", "in": "body", "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "Command result", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "400": {"description": "Invalid arguments", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "404": {"description": "Unknown command or reader", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "409": {"description": "Bridge state does not allow the command", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "502": {"description": "Reader SDK failure", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/api/v1/commands/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Commands"],
                "summary": "Get a journaled command",
                "parameters": [
                    {"type": "string", "description": "Command ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Journal entry", "schema": {"$ref": "#/definitions/model.CommandRecord"}},
                    "400": {"description": "Invalid ID", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/api/v1/methods": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Commands"],
                "summary": "Supported commands",
                "responses": {
                    "200": {"description": "Command names", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/api/v1/readers": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Readers"],
                "summary": "Discovered readers",
                "responses": {
                    "200": {"description": "Readers from the latest discovery batch", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Reader"}}}
                }
            }
        },
        "/api/v1/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Readers"],
                "summary": "Bridge status",
                "responses": {
                    "200": {"description": "Bridge status", "schema": {"$ref": "#/definitions/dispatcher.Status"}}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Get overall service health including the bridge state and journal store",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "Service is healthy", "schema": {"$ref": "#/definitions/handler.HealthResponse"}},
                    "503": {"description": "Service is unhealthy", "schema": {"$ref": "#/definitions/handler.HealthResponse"}}
                }
            }
        },
        "/health/db": {
            "get": {
                "description": "Check journal database connectivity and pool statistics",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Database health check",
                "responses": {
                    "200": {"description": "Database is healthy", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "404": {"description": "No database configured", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "503": {"description": "Database is unhealthy", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Service is ready"},
                    "503": {"description": "Service is not ready"}
                }
            }
        },
        "/live": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness check",
                "responses": {
                    "200": {"description": "Service is alive"}
                }
            }
        },
        "/ws/channel": {
            "get": {
                "description": "WebSocket carrying call/result/error/event envelopes",
                "tags": ["Channel"],
                "summary": "Method channel",
                "responses": {
                    "101": {"description": "Switching protocols"},
                    "403": {"description": "Origin not allowed"}
                }
            }
        }
    },
    "definitions": {
        "dispatcher.Status": {
            "type": "object",
            "properties": {
                "connection_status": {"type": "string"},
                "connected_serial": {"type": "string"},
                "discovery_running": {"type": "boolean"},
                "collection_running": {"type": "boolean"},
                "reader_count": {"type": "integer"},
                "token_provider": {"type": "boolean"}
            }
        },
        "handler.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "timestamp": {"type": "string"},
                "service": {"type": "string"},
                "version": {"type": "string"},
                "uptime": {"type": "string"},
                "checks": {"type": "object", "additionalProperties": {"type": "object"}}
            }
        },
        "model.CommandRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "method": {"type": "string"},
                "source": {"type": "string", "enum": ["CHANNEL", "HTTP"]},
                "status": {"type": "string", "enum": ["PENDING", "SUCCEEDED", "FAILED"]},
                "error_code": {"type": "string"},
                "error_message": {"type": "string"},
                "started_at": {"type": "string"},
                "completed_at": {"type": "string"},
                "duration_ms": {"type": "integer"}
            }
        },
        "model.Reader": {
            "type": "object",
            "properties": {
                "serialNumber": {"type": "string"},
                "availableUpdate": {"type": "boolean"},
                "batteryLevel": {"type": "number"},
                "batteryStatus": {"type": "integer"},
                "deviceSoftwareVersion": {"type": "string"},
                "deviceType": {"type": "integer"},
                "locationId": {"type": "string"},
                "ipAddress": {"type": "string"},
                "isCharging": {"type": "boolean"},
                "label": {"type": "string"},
                "locationStatus": {"type": "integer"},
                "stripeId": {"type": "string"},
                "simulated": {"type": "boolean"}
            }
        },
        "utils.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "string"}
            }
        },
        "utils.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {},
                "error": {"$ref": "#/definitions/utils.APIError"},
                "timestamp": {"type": "string"},
                "request_id": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:4242",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Terminal Bridge API",
	Description:      "Local bridge between a host application and a card reader SDK",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
