// Package docs registers the OpenAPI description served at /swagger/*.
package docs

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
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["meta"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/http.HealthzResponse"}}}
            }
        },
        "/readyz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["meta"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ReadyzResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/http.APIError"}}
                }
            }
        },
        "/passes": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/vnd.apple.pkpass"],
                "tags": ["passes"],
                "summary": "Выпуск пропуска",
                "parameters": [{"description": "Create pass", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreatePassRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.APIError"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/http.APIError"}}
                }
            }
        },
        "/passes/{wallet_type}/{customer_id}/{offer_id}": {
            "get": {
                "produces": ["application/vnd.apple.pkpass"],
                "tags": ["passes"],
                "summary": "Получить пропуск",
                "parameters": [
                    {"type": "string", "description": "apple | google", "name": "wallet_type", "in": "path", "required": true},
                    {"type": "string", "description": "Customer ID", "name": "customer_id", "in": "path", "required": true},
                    {"type": "string", "description": "Offer ID", "name": "offer_id", "in": "path", "required": true},
                    {"type": "string", "description": "ETag", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "304": {"description": "Not Modified"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.APIError"}}
                }
            }
        },
        "/passes/{serial}/status": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["passes"],
                "summary": "Сменить статус пропуска",
                "parameters": [
                    {"type": "string", "description": "Serial number", "name": "serial", "in": "path", "required": true},
                    {"description": "Status", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.ChangeStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ChangeStatusResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.APIError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/http.APIError"}}
                }
            }
        },
        "/passes/{serial}/push": {
            "post": {
                "produces": ["application/json"],
                "tags": ["passes"],
                "summary": "Запросить обновление на устройствах",
                "parameters": [{"type": "string", "description": "Serial number", "name": "serial", "in": "path", "required": true}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/dto.PushResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.APIError"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/http.APIError"}}
                }
            }
        },
        "/signer": {
            "get": {
                "produces": ["application/json"],
                "tags": ["keys"],
                "summary": "Сведения о подписанте",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SignerResponse"}}}
            }
        }
    },
    "definitions": {
        "dto.CreatePassRequest": {
            "type": "object",
            "properties": {
                "customer_id": {"type": "string"},
                "offer_id": {"type": "string"},
                "wallet_type": {"type": "string"}
            }
        },
        "dto.ChangeStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "scheduled_expiration_at": {"type": "string"}
            }
        },
        "dto.ChangeStatusResponse": {
            "type": "object",
            "properties": {
                "serial_number": {"type": "string"},
                "status": {"type": "string"},
                "scheduled_expiration_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "dto.PushResponse": {
            "type": "object",
            "properties": {
                "serial_number": {"type": "string"},
                "etag": {"type": "string"},
                "changed": {"type": "boolean"}
            }
        },
        "dto.CertificateInfo": {
            "type": "object",
            "properties": {
                "subject": {"type": "string"},
                "issuer": {"type": "string"},
                "serial_number": {"type": "string"},
                "fingerprint_sha256": {"type": "string"},
                "not_before": {"type": "string"},
                "not_after": {"type": "string"}
            }
        },
        "dto.SignerResponse": {
            "type": "object",
            "properties": {
                "pass_type_identifier": {"type": "string"},
                "team_identifier": {"type": "string"},
                "certificates": {"type": "array", "items": {"$ref": "#/definitions/dto.CertificateInfo"}}
            }
        },
        "http.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {}
            }
        },
        "http.HealthzResponse": {
            "type": "object",
            "properties": {"status": {"type": "string"}}
        },
        "http.ReadyzResponse": {
            "type": "object",
            "properties": {"status": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8081",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "pass-service API",
	Description:      "Сервис выпуска и обновления пропусков для кошельков.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
