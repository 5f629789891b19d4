// Package docs registers the OpenAPI description of the HTTP API with swag
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
        "/api/questions": {
            "get": {
                "produces": ["application/json"],
                "summary": "Sample a question set",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "single-answer questions to draw",
                        "name": "singleCount",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "description": "multiple-answer questions to draw",
                        "name": "multipleCount",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.QuestionsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.QuestionsResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/model.QuestionsResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "model.QuestionRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "type": {"type": "string", "enum": ["single", "multiple"]},
                "question": {"type": "string"},
                "options": {"type": "array", "items": {"type": "string"}},
                "answer": {"type": "string"}
            }
        },
        "model.CategorySample": {
            "type": "object",
            "properties": {
                "questions": {"type": "array", "items": {"$ref": "#/definitions/model.QuestionRecord"}},
                "totalScore": {"type": "integer"}
            }
        },
        "model.QuestionSet": {
            "type": "object",
            "properties": {
                "singleChoice": {"$ref": "#/definitions/model.CategorySample"},
                "multipleChoice": {"$ref": "#/definitions/model.CategorySample"}
            }
        },
        "model.QuestionsResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"$ref": "#/definitions/model.QuestionSet"},
                "message": {"type": "string"}
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
	Title:            "timedquiz API",
	Description:      "Random question sets for timed quiz attempts.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
