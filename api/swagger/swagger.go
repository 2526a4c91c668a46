package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "On-Demand Reports API",
        "description": "Lists, requests and re-downloads on-demand batch reports",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Reports", "description": "On-demand report requests of a batch"},
        {"name": "Operations", "description": "Health and metrics"}
    ],
    "paths": {
        "/report-types": {
            "get": {
                "tags": ["Reports"],
                "summary": "List requestable report types",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{tag}": {
            "get": {
                "tags": ["Reports"],
                "summary": "List on-demand report requests of a batch",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "tag", "in": "path", "required": true, "type": "string"},
                    {"name": "batchId", "in": "query", "required": true, "type": "string"},
                    {"name": "endDate", "in": "query", "type": "string", "description": "YYYY-MM-DD, RFC3339 or epoch milliseconds"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ReportListResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Report service unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{tag}/requests": {
            "post": {
                "tags": ["Reports"],
                "summary": "Request a new on-demand report",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "tag", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload or password", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A report of this type is still being generated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Report service unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{tag}/requests/{requestId}/download": {
            "post": {
                "tags": ["Reports"],
                "summary": "Get a fresh download link for a report request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "tag", "in": "path", "required": true, "type": "string"},
                    {"name": "requestId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RetryDownloadRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No download link available", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{tag}/audits": {
            "get": {
                "tags": ["Reports"],
                "summary": "List recent report submission attempts for a tag",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "tag", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Submission audit disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/report-links/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Follow a signed download link",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "302": {"description": "Redirect to the download URL"},
                    "404": {"description": "Unknown or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Operations"],
                "summary": "Submission counters snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ReportRecord": {
            "type": "object",
            "properties": {
                "requestId": {"type": "string"},
                "tag": {"type": "string"},
                "dataset": {"type": "string"},
                "status": {"type": "string", "enum": ["SUBMITTED", "COMPLETED", "FAILED"]},
                "requestedBy": {"type": "string"},
                "output_format": {"type": "string"},
                "jobStats": {
                    "type": "object",
                    "properties": {
                        "dtJobSubmitted": {"type": "integer"},
                        "dtJobCompleted": {"type": "integer"}
                    }
                },
                "downloadUrls": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ReportListResponse": {
            "type": "object",
            "properties": {
                "records": {"type": "array", "items": {"$ref": "#/definitions/ReportRecord"}},
                "processedWithError": {"type": "boolean"}
            }
        },
        "SubmitReportRequest": {
            "type": "object",
            "required": ["batchId", "dataset"],
            "properties": {
                "batchId": {"type": "string"},
                "endDate": {"type": "string"},
                "dataset": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RetryDownloadRequest": {
            "type": "object",
            "required": ["batchId"],
            "properties": {
                "batchId": {"type": "string"},
                "endDate": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
