// Package docs holds the OpenAPI document served under /swagger.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/api.HealthResponse"}
                    }
                }
            }
        },
        "/process": {
            "post": {
                "description": "Transcribes the uploaded clip, translates the transcript and,\nwhen command resolution is enabled, runs the resulting command.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["process"],
                "summary": "Process a recorded voice command",
                "parameters": [
                    {
                        "type": "file",
                        "description": "Audio clip (wav, mp3 or m4a)",
                        "name": "audio",
                        "in": "formData",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Bearer device token when auth is enabled",
                        "name": "Authorization",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/api.ProcessResponse"}
                    },
                    "400": {
                        "description": "Missing file, invalid format or no speech",
                        "schema": {"$ref": "#/definitions/api.ErrorResponse"}
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {"$ref": "#/definitions/api.ErrorResponse"}
                    },
                    "500": {
                        "description": "Upstream engine failure",
                        "schema": {"$ref": "#/definitions/api.ErrorResponse"}
                    }
                }
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "stage": {"type": "string"},
                "type": {"type": "string"}
            }
        },
        "api.HealthResponse": {
            "type": "object",
            "properties": {
                "service": {"type": "string", "example": "voicecmd"},
                "status": {"type": "string", "example": "healthy"},
                "timestamp": {"type": "string", "example": "2024-05-01T10:00:00Z"}
            }
        },
        "api.ProcessResponse": {
            "type": "object",
            "properties": {
                "actions": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/usecase.ActionSummary"}
                },
                "answer": {"type": "string", "example": "The TV is on."},
                "original_text": {"type": "string", "example": "ടിവി ഓൺ ചെയ്യൂ"},
                "translated_text": {"type": "string", "example": "turn on the tv"}
            }
        },
        "usecase.ActionSummary": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "result": {},
                "status": {"type": "string"},
                "tool": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "voicecmd API",
	Description:      "Transcribes, translates and resolves spoken device commands.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
