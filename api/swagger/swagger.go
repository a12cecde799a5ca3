package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Welfare Canteen API",
        "description": "Role-based admin system for inmate welfare accounts and the facility tuck-shop",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Password and biometric login"},
        {"name": "Inmates", "description": "Inmate directory and biometrics"},
        {"name": "POS", "description": "Tuck-shop point of sale"},
        {"name": "Transactions", "description": "Deposits, purchases and reversals"},
        {"name": "Inventory", "description": "Canteen and store stock tiers"},
        {"name": "Reports", "description": "Tabular exports"},
        {"name": "Users", "description": "Operator accounts"},
        {"name": "Locations", "description": "Facilities and custody limits"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate by username and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/auth/face-login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate by face descriptor",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FaceLoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "No biometric match"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke the presented access token",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/inmates": {
            "get": {
                "tags": ["Inmates"],
                "summary": "List inmates",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Inmates"],
                "summary": "Create inmate",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Inmate"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/inmates/import": {
            "post": {
                "tags": ["Inmates"],
                "summary": "Bulk import inmates from CSV",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pos/cart/lookup": {
            "post": {
                "tags": ["POS"],
                "summary": "Bind an inmate to the operator's cart",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"inmate_id": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Inmate not found"}
                }
            }
        },
        "/pos/cart/checkout": {
            "post": {
                "tags": ["POS"],
                "summary": "Checkout the cart against the bound inmate's balance",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Insufficient balance or stock"}
                }
            }
        },
        "/transactions/deposits": {
            "post": {
                "tags": ["Transactions"],
                "summary": "Record a deposit",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DepositRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Custody limit exceeded or account blocked"}
                }
            }
        },
        "/transactions/withdrawals": {
            "post": {
                "tags": ["Transactions"],
                "summary": "Record a withdrawal",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/WithdrawalRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Insufficient balance or account blocked"}
                }
            }
        },
        "/transactions/{id}/reverse": {
            "post": {
                "tags": ["Transactions"],
                "summary": "Reverse a transaction",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reversed"}
                }
            }
        },
        "/inventory/transfer": {
            "post": {
                "tags": ["Inventory"],
                "summary": "Transfer stock from store to canteen",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransferRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Insufficient store stock"}
                }
            }
        },
        "/reports/inmate-balances": {
            "get": {
                "tags": ["Reports"],
                "summary": "Inmate balance report",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "description": "json, csv, excel or pdf"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["username", "password"]
        },
        "FaceLoginRequest": {
            "type": "object",
            "properties": {
                "descriptor": {"type": "array", "items": {"type": "number"}}
            },
            "required": ["descriptor"]
        },
        "Inmate": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "inmateId": {"type": "string"},
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "status": {"type": "string"},
                "custodyType": {"type": "string"},
                "balance": {"type": "number"},
                "is_blocked": {"type": "boolean"},
                "locationId": {"type": "string"}
            }
        },
        "DepositRequest": {
            "type": "object",
            "properties": {
                "inmateId": {"type": "string"},
                "depositType": {"type": "string"},
                "depositAmount": {"type": "number"},
                "relationShipId": {"type": "string"},
                "remarks": {"type": "string"}
            },
            "required": ["inmateId", "depositType", "depositAmount"]
        },
        "WithdrawalRequest": {
            "type": "object",
            "properties": {
                "inmateId": {"type": "string"},
                "withdrawalAmount": {"type": "number"},
                "remarks": {"type": "string"}
            },
            "required": ["inmateId", "withdrawalAmount"]
        },
        "TransferRequest": {
            "type": "object",
            "properties": {
                "itemNo": {"type": "string"},
                "transferQty": {"type": "integer"}
            },
            "required": ["itemNo", "transferQty"]
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
