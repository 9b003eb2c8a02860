package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Substitution API",
        "description": "Timetable substitute-teacher and absence workflow service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Timetable", "description": "Weekly grid reads and overrides"},
        {"name": "Absences", "description": "Absence reporting and substitute resolution"},
        {"name": "Directory", "description": "Teachers and free-teacher lookups"},
        {"name": "Notifications", "description": "Workflow announcements"},
        {"name": "Operations", "description": "Health, readiness and statistics"}
    ],
    "paths": {
        "/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Get the weekly timetable",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/{day}/{period}": {
            "put": {
                "tags": ["Timetable"],
                "summary": "Override a slot",
                "parameters": [
                    {"name": "day", "in": "path", "required": true, "type": "string"},
                    {"name": "period", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SlotPatch"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown slot or teacher", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/export": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Export the timetable",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Attachment"}
                }
            }
        },
        "/reference": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Static reference data",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/absences": {
            "get": {
                "tags": ["Absences"],
                "summary": "List absence requests",
                "parameters": [
                    {"name": "teacherId", "in": "query", "type": "integer"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["CREATED", "PENDING_RESOLUTION", "RESOLVED_SUCCESS", "RESOLVED_FAILURE"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Absences"],
                "summary": "Report an absent slot",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportAbsenceRequest"}}
                ],
                "responses": {
                    "200": {"description": "Resolved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Slot no longer assigned to the teacher", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/absences/tomorrow": {
            "post": {
                "tags": ["Absences"],
                "summary": "Report a full absence for the next instructional day",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ReportTomorrowRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Past the reporting cutoff", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/absences/{id}": {
            "get": {
                "tags": ["Absences"],
                "summary": "Get an absence request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/absences/{id}/resolve": {
            "post": {
                "tags": ["Absences"],
                "summary": "Resolve an absence request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Resolution failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers": {
            "get": {
                "tags": ["Directory"],
                "summary": "List teachers",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability": {
            "get": {
                "tags": ["Directory"],
                "summary": "Free teachers for a slot",
                "parameters": [
                    {"name": "day", "in": "query", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "type": "integer"},
                    {"name": "exclude", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Recent notifications, newest first",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stats": {
            "get": {
                "tags": ["Operations"],
                "summary": "Workflow and cache statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/dev-token": {
            "post": {
                "tags": ["Operations"],
                "summary": "Issue a development token",
                "security": [],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DevTokenRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "TimetableSlot": {
            "type": "object",
            "properties": {
                "class": {"type": "string"},
                "subject": {"type": "string"},
                "teacher": {"type": "string"},
                "isSubstitute": {"type": "boolean"},
                "originalTeacher": {"type": "string"}
            }
        },
        "SlotPatch": {
            "type": "object",
            "properties": {
                "class": {"type": "string"},
                "subject": {"type": "string"},
                "teacher": {"type": "string"},
                "clearTeacher": {"type": "boolean"}
            }
        },
        "ReportAbsenceRequest": {
            "type": "object",
            "required": ["teacherId", "day", "period"],
            "properties": {
                "teacherId": {"type": "integer"},
                "day": {"type": "string"},
                "period": {"type": "integer"},
                "resolve": {"type": "boolean"}
            }
        },
        "ReportTomorrowRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "AbsenceRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "absentTeacherId": {"type": "integer"},
                "absentTeacherName": {"type": "string"},
                "day": {"type": "string"},
                "period": {"type": "integer"},
                "slot": {"$ref": "#/definitions/TimetableSlot"},
                "status": {"type": "string"},
                "source": {"type": "string"},
                "reason": {"type": "string"},
                "reasoning": {"type": "string"},
                "substitute": {"type": "string"},
                "failureCode": {"type": "string"},
                "failureReason": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"},
                "resolvedAt": {"type": "string", "format": "date-time"}
            }
        },
        "Notification": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "message": {"type": "string"},
                "type": {"type": "string", "enum": ["success", "info", "error"]},
                "timestamp": {"type": "string", "format": "date-time"}
            }
        },
        "DevTokenRequest": {
            "type": "object",
            "required": ["user_id", "role"],
            "properties": {
                "user_id": {"type": "string"},
                "role": {"type": "string", "enum": ["ADMIN", "HOD", "TEACHER", "STUDENT"]},
                "full_name": {"type": "string"},
                "teacher_id": {"type": "integer"},
                "department": {"type": "string"}
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
