package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Exit Kiosk",
        "description": "Staff kiosk for registering student exits. Pages answer HTML; send Accept: application/json for envelopes.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Roster", "description": "Student roster, search and badges"},
        {"name": "Exit", "description": "Exit registration form and receipt"},
        {"name": "History", "description": "Exit history browser and exports"},
        {"name": "Authentication", "description": "Staff sign in"}
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
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/": {
            "get": {
                "tags": ["Roster"],
                "summary": "Roster page",
                "produces": ["text/html", "application/json"],
                "responses": {
                    "200": {"description": "Roster view", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "303": {"description": "Sign in required"}
                }
            }
        },
        "/roster/reload": {
            "post": {
                "tags": ["Roster"],
                "summary": "Reload the roster from the backend",
                "responses": {
                    "200": {"description": "Reloaded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "303": {"description": "Back to the roster"}
                }
            }
        },
        "/roster/upload": {
            "post": {
                "tags": ["Roster"],
                "summary": "Stage a roster spreadsheet",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "200": {"description": "Preview", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid file", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roster/upload/confirm": {
            "post": {
                "tags": ["Roster"],
                "summary": "Send the staged spreadsheet to the backend",
                "responses": {
                    "200": {"description": "Uploaded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roster/upload/cancel": {
            "post": {
                "tags": ["Roster"],
                "summary": "Discard the staged spreadsheet",
                "responses": {
                    "303": {"description": "Back to the roster"}
                }
            }
        },
        "/students/{id}/badge": {
            "get": {
                "tags": ["Roster"],
                "summary": "Exit count badge of a student",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Badge", "schema": {"$ref": "#/definitions/Badge"}}
                }
            }
        },
        "/exit/{studentId}": {
            "get": {
                "tags": ["Exit"],
                "summary": "Open the exit form for a student",
                "parameters": [
                    {"name": "studentId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Form", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown student", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exit/form": {
            "post": {
                "tags": ["Exit"],
                "summary": "Update the open exit form",
                "consumes": ["application/x-www-form-urlencoded"],
                "responses": {
                    "200": {"description": "Form", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid form", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exit/submit": {
            "post": {
                "tags": ["Exit"],
                "summary": "Register the exit",
                "responses": {
                    "200": {"description": "Receipt ready", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Sign in required", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Form not submittable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Backend rejected the exit", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exit/close": {
            "post": {
                "tags": ["Exit"],
                "summary": "Close the exit form",
                "responses": {
                    "303": {"description": "Back to the roster"}
                }
            }
        },
        "/exit/receipt.pdf": {
            "get": {
                "tags": ["Exit"],
                "summary": "Printable receipt of the last registered exit",
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "PDF"},
                    "404": {"description": "No receipt", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/history": {
            "get": {
                "tags": ["History"],
                "summary": "History browser",
                "responses": {
                    "200": {"description": "History view", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/history/filter": {
            "post": {
                "tags": ["History"],
                "summary": "Apply history filters",
                "consumes": ["application/x-www-form-urlencoded"],
                "parameters": [
                    {"name": "term", "in": "formData", "type": "string"},
                    {"name": "motive", "in": "formData", "type": "string"},
                    {"name": "from", "in": "formData", "type": "string", "format": "date"},
                    {"name": "to", "in": "formData", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "History view", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/history/clear": {
            "post": {"tags": ["History"], "summary": "Reset history filters", "responses": {"303": {"description": "Back to history"}}}
        },
        "/history/delete": {
            "post": {
                "tags": ["History"],
                "summary": "Ask to delete a record",
                "parameters": [
                    {"name": "pdf", "in": "formData", "type": "string", "required": true}
                ],
                "responses": {"303": {"description": "Confirmation shown"}}
            }
        },
        "/history/delete/confirm": {
            "post": {"tags": ["History"], "summary": "Delete the pending record", "responses": {"303": {"description": "Back to history"}}}
        },
        "/history/delete/cancel": {
            "post": {"tags": ["History"], "summary": "Keep the pending record", "responses": {"303": {"description": "Back to history"}}}
        },
        "/history/close": {
            "post": {"tags": ["History"], "summary": "Close the history browser", "responses": {"303": {"description": "Back to the roster"}}}
        },
        "/history/export.csv": {
            "get": {
                "tags": ["History"],
                "summary": "Export the filtered history as CSV",
                "responses": {
                    "200": {"description": "Download link", "schema": {"$ref": "#/definitions/ExportLink"}},
                    "303": {"description": "Redirect to the download"}
                }
            }
        },
        "/history/export.pdf": {
            "get": {
                "tags": ["History"],
                "summary": "Export the filtered history as PDF",
                "responses": {
                    "200": {"description": "Download link", "schema": {"$ref": "#/definitions/ExportLink"}},
                    "303": {"description": "Redirect to the download"}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["History"],
                "summary": "Download a signed export",
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "404": {"description": "Unknown or expired link"}
                }
            }
        },
        "/pdfs/{file}": {
            "get": {
                "tags": ["History"],
                "summary": "Official receipt of a history row",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "file", "in": "path", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "PDF"}}
            }
        },
        "/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Sign in",
                "consumes": ["application/x-www-form-urlencoded"],
                "parameters": [
                    {"name": "password", "in": "formData", "type": "string", "required": true},
                    {"name": "next", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Signed in", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "303": {"description": "Redirect to next"},
                    "401": {"description": "Wrong password"}
                }
            }
        },
        "/logout": {
            "post": {"tags": ["Authentication"], "summary": "Sign out", "responses": {"303": {"description": "Redirect to sign in"}}}
        }
    },
    "definitions": {
        "Badge": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "count": {"type": "integer"},
                "monthlyCount": {"type": "integer"},
                "hasExits": {"type": "boolean"},
                "recurrent": {"type": "boolean"}
            }
        },
        "ExportLink": {
            "type": "object",
            "properties": {
                "url": {"type": "string"},
                "filename": {"type": "string"},
                "format": {"type": "string"},
                "rows": {"type": "integer"},
                "expiresAt": {"type": "string", "format": "date-time"}
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
