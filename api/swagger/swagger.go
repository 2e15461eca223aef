package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Risk API",
        "description": "Academic and behavioural risk scoring for students",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Risk", "description": "Failing, dropout and composite risk analyses"},
        {"name": "Screenings", "description": "Clinical screening ingest"},
        {"name": "Reports", "description": "Asynchronous CSV and PDF exports"},
        {"name": "Metrics", "description": "Service observability"}
    ],
    "paths": {
        "/groups/{groupId}/partials/{partialId}/risk": {
            "get": {
                "tags": ["Risk"],
                "summary": "Risk analysis of every student in a group",
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"},
                    {"name": "partialId", "in": "path", "required": true, "type": "string", "enum": ["p1", "p2", "p3"]},
                    {"name": "as_of", "in": "query", "required": false, "type": "string", "description": "RFC3339 or YYYY-MM-DD"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown partial", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Group not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Snapshot source unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/groups/{groupId}/partials/{partialId}/students/{studentId}/risk": {
            "get": {
                "tags": ["Risk"],
                "summary": "Risk analysis of one student",
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"},
                    {"name": "partialId", "in": "path", "required": true, "type": "string", "enum": ["p1", "p2", "p3"]},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "as_of", "in": "query", "required": false, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Group or student not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/groups/{groupId}/partials/{partialId}/students/{studentId}/referral": {
            "get": {
                "tags": ["Risk"],
                "summary": "Referral record for the school counsellor",
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"},
                    {"name": "partialId", "in": "path", "required": true, "type": "string", "enum": ["p1", "p2", "p3"]},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "as_of", "in": "query", "required": false, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/risk/history": {
            "get": {
                "tags": ["Risk"],
                "summary": "Persisted risk assessments of a student",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "required": false, "type": "integer", "default": 20, "maximum": 200}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/risk/analyze": {
            "post": {
                "tags": ["Risk"],
                "summary": "Score an inline group snapshot",
                "consumes": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AnalyzeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/risk/irc": {
            "post": {
                "tags": ["Risk"],
                "summary": "Composite risk index from raw scores",
                "consumes": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/IRCRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/screenings": {
            "post": {
                "tags": ["Screenings"],
                "summary": "Record screening scores for a student",
                "consumes": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScreeningRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a group risk or referral report",
                "consumes": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Job not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished report through its signed link",
                "security": [],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Report not ready", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/system": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Aggregated service metrics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "AnalyzeRequest": {
            "type": "object",
            "required": ["snapshot"],
            "properties": {
                "as_of": {"type": "string", "format": "date-time"},
                "student_id": {"type": "string"},
                "snapshot": {"type": "object"}
            }
        },
        "IRCRequest": {
            "type": "object",
            "properties": {
                "attendance": {"type": "number", "minimum": 0, "maximum": 100},
                "grade": {"type": "number", "minimum": 0, "maximum": 100},
                "gad7": {"type": "number", "minimum": 0, "maximum": 21},
                "cognitive": {"type": "number", "minimum": 0, "maximum": 100}
            }
        },
        "ScreeningRequest": {
            "type": "object",
            "required": ["student_id"],
            "properties": {
                "student_id": {"type": "string"},
                "partial_id": {"type": "string", "enum": ["p1", "p2", "p3"]},
                "gad7": {"type": "number", "minimum": 0, "maximum": 21},
                "cognitive": {"type": "number", "minimum": 0, "maximum": 100},
                "recommendation": {"type": "string", "maxLength": 2000},
                "source": {"type": "string", "maxLength": 64}
            }
        },
        "ReportRequest": {
            "type": "object",
            "required": ["type", "groupId", "partialId", "format"],
            "properties": {
                "type": {"type": "string", "enum": ["group_risk", "referrals"]},
                "groupId": {"type": "string"},
                "partialId": {"type": "string", "enum": ["p1", "p2", "p3"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "asOf": {"type": "string", "format": "date-time"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
