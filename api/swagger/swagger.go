package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Intake Availability API",
        "description": "Guardian intake backend: preference extraction and availability matching",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Intake", "description": "Free-text preference extraction"},
        {"name": "Availability", "description": "Availability matching and export"},
        {"name": "Admin", "description": "Snapshot operations"},
        {"name": "Auth", "description": "Admin authentication"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/intake/preferences": {
            "post": {
                "tags": ["Intake"],
                "summary": "Extract a structured scheduling preference from free text",
                "responses": {
                    "200": {"description": "Validated preference"},
                    "400": {"description": "Validation error"},
                    "429": {"description": "Rate limited"},
                    "502": {"description": "Oracle failure"}
                }
            }
        },
        "/api/v1/availability/match": {
            "post": {
                "tags": ["Availability"],
                "summary": "Match a preference against clinician availability",
                "responses": {
                    "200": {"description": "Ordered matched slots; empty list when nothing fits"},
                    "400": {"description": "Invalid preference"},
                    "429": {"description": "Rate limited"},
                    "503": {"description": "Availability source unavailable"}
                }
            }
        },
        "/api/v1/availability/match/export": {
            "post": {
                "tags": ["Availability"],
                "summary": "Export matched slots as PDF or CSV",
                "responses": {
                    "200": {"description": "Document bytes"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Admin login",
                "responses": {
                    "200": {"description": "Access token"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/v1/admin/availability/reload": {
            "post": {
                "tags": ["Admin"],
                "summary": "Force a snapshot refresh",
                "responses": {
                    "200": {"description": "New snapshot shape"},
                    "401": {"description": "Unauthorized"},
                    "503": {"description": "Load failure"}
                }
            }
        },
        "/api/v1/admin/availability/stats": {
            "get": {
                "tags": ["Admin"],
                "summary": "Current snapshot shape",
                "responses": {
                    "200": {"description": "Snapshot stats"},
                    "401": {"description": "Unauthorized"}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "Envelope": {
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
