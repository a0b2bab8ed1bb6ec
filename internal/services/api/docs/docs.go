// Package docs holds the OpenAPI document served at /api/docs.
// Regenerate with: swag init -g cmd/agentpulse-api/main.go -o internal/services/api/docs --v3.1
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
  "openapi": "3.0.3",
  "info": {
    "title": "{{.Title}}",
    "description": "{{escape .Description}}",
    "version": "{{.Version}}"
  },
  "paths": {
    "/activity/rows": {
      "post": {
        "tags": ["Activity"],
        "summary": "Hourly presence and call rows",
        "operationId": "activityRows",
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/RowsInput"}}}
        },
        "responses": {
          "200": {
            "description": "ok",
            "content": {"application/json": {"schema": {"type": "array", "items": {"$ref": "#/components/schemas/Row"}}}}
          },
          "422": {"description": "invalid range"}
        }
      }
    },
    "/activity/aggregate": {
      "post": {
        "tags": ["Activity"],
        "summary": "Aggregate a range of local hours",
        "description": "Runs inline and returns the run summary. 409 while another run holds the guard.",
        "operationId": "activityAggregate",
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/AggregateInput"}}}
        },
        "responses": {
          "200": {
            "description": "ok",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Summary"}}}
          },
          "409": {"description": "run in flight"},
          "422": {"description": "invalid range"},
          "503": {"description": "event store unreachable"}
        }
      }
    },
    "/meta/health": {
      "get": {"tags": ["Meta"], "summary": "Health check", "operationId": "metaHealth", "responses": {"200": {"description": "ok"}}}
    },
    "/meta/ready": {
      "get": {"tags": ["Meta"], "summary": "Readiness check across dependencies", "operationId": "metaReady", "responses": {"200": {"description": "ok"}}}
    },
    "/meta/version": {
      "get": {"tags": ["Meta"], "summary": "Build and version info", "operationId": "metaVersion", "responses": {"200": {"description": "ok"}}}
    },
    "/meta/service": {
      "get": {"tags": ["Meta"], "summary": "Service info and uptime", "operationId": "metaService", "responses": {"200": {"description": "ok"}}}
    },
    "/meta/engine": {
      "get": {"tags": ["Meta"], "summary": "Aggregation engine settings and run state", "operationId": "metaEngine", "responses": {"200": {"description": "ok"}}}
    }
  },
  "components": {
    "schemas": {
      "DateRange": {
        "type": "object",
        "required": ["start", "end"],
        "properties": {
          "start": {"type": "string", "example": "2025-03-10"},
          "end": {"type": "string", "example": "2025-03-10"}
        }
      },
      "RowsInput": {
        "type": "object",
        "properties": {
          "range": {"$ref": "#/components/schemas/DateRange"},
          "agent_ids": {"type": "array", "items": {"type": "string"}},
          "limit": {"type": "integer", "example": 500}
        }
      },
      "AggregateInput": {
        "type": "object",
        "required": ["start", "end"],
        "properties": {
          "start": {"type": "string", "example": "2025-03-10T09"},
          "end": {"type": "string", "example": "2025-03-10T12"}
        }
      },
      "Durations": {
        "type": "object",
        "additionalProperties": {"type": "integer"}
      },
      "Row": {
        "type": "object",
        "properties": {
          "agent_id": {"type": "string"},
          "agent_name": {"type": "string"},
          "hour": {"type": "string", "example": "2025-03-10T10:00"},
          "bucket_start": {"type": "integer"},
          "bucket_end": {"type": "integer"},
          "tz": {"type": "string", "example": "Asia/Dubai"},
          "idle_entries": {"type": "integer"},
          "not_avail_entries": {"type": "integer"},
          "total_calls": {"type": "integer"},
          "answered_calls": {"type": "integer"},
          "failed_calls": {"type": "integer"},
          "aht_secs": {"type": "number"},
          "table_version": {"type": "integer"},
          "durations": {"$ref": "#/components/schemas/Durations"}
        }
      },
      "Failure": {
        "type": "object",
        "properties": {
          "bucket_start": {"type": "integer"},
          "agent_id": {"type": "string"},
          "kind": {"type": "string", "enum": ["event_load", "call_load", "classification_gap", "write"]},
          "error": {"type": "string"}
        }
      },
      "Summary": {
        "type": "object",
        "properties": {
          "run_id": {"type": "string"},
          "start": {"type": "integer"},
          "end": {"type": "integer"},
          "tz": {"type": "string"},
          "table_version": {"type": "integer"},
          "buckets_planned": {"type": "integer"},
          "buckets_processed": {"type": "integer"},
          "buckets_failed": {"type": "integer"},
          "agents_upserted": {"type": "integer"},
          "agents_failed": {"type": "integer"},
          "events_skipped": {"type": "integer"},
          "failures": {"type": "array", "items": {"$ref": "#/components/schemas/Failure"}}
        }
      }
    }
  }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "AgentPulse API",
	Description:      "Hourly agent presence and call activity",
	InfoInstanceName: "api",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
