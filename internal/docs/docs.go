// Package docs registers the OpenAPI description of the local API with swag.
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
        "/items": {
            "get": {
                "description": "Lists items from the backend, or from the offline cache when the backend is unreachable",
                "produces": ["application/json"],
                "tags": ["Items"],
                "summary": "List items",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Item"}}},
                    "503": {"description": "No offline data available", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/items/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Items"],
                "summary": "Get item",
                "parameters": [{"type": "string", "description": "Item ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Item"}},
                    "404": {"description": "Item not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "No offline data available", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "put": {
                "description": "Writes through to the backend when reachable, otherwise queues the write for the next sync",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Items"],
                "summary": "Create or update item",
                "parameters": [
                    {"type": "string", "description": "Item ID", "name": "id", "in": "path", "required": true},
                    {"description": "Item", "name": "item", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.Item"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Item"}},
                    "400": {"description": "Invalid item", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Items"],
                "summary": "Delete item",
                "parameters": [{"type": "string", "description": "Item ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Item not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/sync": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "Run a sync pass now",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.SyncResult"}},
                    "409": {"description": "Sync already in progress", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Network unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/sync/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "Get sync state",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.SyncState"}}}
            }
        },
        "/sync/dead-letters": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "List operations that exhausted their retries",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.QueuedOperation"}}}}
            }
        },
        "/sync/queue": {
            "delete": {
                "tags": ["Sync"],
                "summary": "Discard pending operations",
                "description": "Drops every queued write without replaying it. Dead letters are kept.",
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Sync in progress", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/connectivity": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "Get backend reachability",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ConnectivityStatus"}}}
            }
        },
        "/cache": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Cache"],
                "summary": "Get offline cache size",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.CacheResponse"}},
                    "501": {"description": "Cache not configured", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Cache"],
                "summary": "Clear the offline cache",
                "description": "Removes every cached item. Pending operations stay queued.",
                "responses": {
                    "204": {"description": "No Content"},
                    "501": {"description": "Cache not configured", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string", "example": "no offline data available"}}
        },
        "http.CacheResponse": {
            "type": "object",
            "properties": {"size_bytes": {"type": "integer", "example": 2048}}
        },
        "domain.Item": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string", "example": "Desk Lamp"},
                "category": {"type": "string"},
                "location": {"type": "string"},
                "quantity": {"type": "integer"},
                "purchase_price": {"type": "number"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "notes": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.SyncResult": {
            "type": "object",
            "properties": {
                "started_at": {"type": "string"},
                "completed_at": {"type": "string"},
                "total": {"type": "integer"},
                "succeeded": {"type": "integer"},
                "failed": {"type": "integer"},
                "dead_lettered": {"type": "integer"}
            }
        },
        "domain.SyncState": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["idle", "syncing"]},
                "is_syncing": {"type": "boolean"},
                "progress": {"type": "number"},
                "last_sync_at": {"type": "string"},
                "pending_operations": {"type": "integer"},
                "last_result": {"$ref": "#/definitions/domain.SyncResult"}
            }
        },
        "domain.QueuedOperation": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "type": {"type": "string", "enum": ["createItem", "updateItem", "deleteItem"]},
                "payload": {"type": "object"},
                "enqueued_at": {"type": "string"},
                "attempts": {"type": "integer"},
                "last_error": {"type": "string"},
                "last_attempt_at": {"type": "string"}
            }
        },
        "domain.ConnectivityStatus": {
            "type": "object",
            "properties": {
                "connected": {"type": "boolean"},
                "last_checked_at": {"type": "string"},
                "last_changed_at": {"type": "string"},
                "consecutive_failures": {"type": "integer"},
                "last_error": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Inventory Sync API",
	Description:      "Local API of the offline-first inventory sync process.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
