// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with `swag init -g cmd/prover-server/main.go`.
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
        "/v1/prove_icr": {
            "post": {
                "description": "Prices the position at the current BTC price, proves its ICR and collateral value and returns the proof",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Proofs"],
                "summary": "Prove a borrower's ICR",
                "parameters": [
                    {"type": "string", "description": "groth16 or plonk", "name": "system", "in": "query"},
                    {"description": "Borrower position", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/collateral.ServiceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/fixture.ProofResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/v1/execute_icr": {
            "post": {
                "description": "Runs the guest and checks the constraints without generating a proof",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Proofs"],
                "summary": "Dry run a proof request",
                "parameters": [
                    {"type": "string", "description": "groth16 or plonk", "name": "system", "in": "query"},
                    {"description": "Borrower position", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/collateral.ServiceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ExecutionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/v1/verify": {
            "post": {
                "description": "Checks a fixture's proof against this server's verifying key",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Proofs"],
                "summary": "Verify a proof fixture",
                "parameters": [
                    {"description": "Fixture produced by prove_icr or the CLI", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/fixture.Fixture"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.VerifyResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/v1/vkey/{system}": {
            "get": {
                "description": "Returns the verifying key id and image id for a proof system",
                "produces": ["application/json"],
                "tags": ["Keys"],
                "summary": "Verifying key id",
                "parameters": [
                    {"type": "string", "description": "groth16 or plonk", "name": "system", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/proving.VerifyingKeyInfo"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/v1/verifier/{system}": {
            "get": {
                "description": "Returns a Solidity verifier contract for the current key pair",
                "produces": ["text/plain"],
                "tags": ["Keys"],
                "summary": "Solidity verifier",
                "parameters": [
                    {"type": "string", "description": "groth16 or plonk", "name": "system", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/v1/proofs/{address}": {
            "get": {
                "description": "Lists the proofs recorded for an address, newest first",
                "produces": ["application/json"],
                "tags": ["Proofs"],
                "summary": "Proof history",
                "parameters": [
                    {"type": "string", "description": "User address", "name": "address", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/repository.ProofRecord"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "collateral.ServiceRequest": {
            "type": "object",
            "required": ["userAddress", "usbdMinted"],
            "properties": {
                "id": {"type": "integer"},
                "userAddress": {"type": "string", "maxLength": 256},
                "amountInBtc": {"type": "string", "example": "0.01"},
                "priceAtDeposited": {"type": "string"},
                "usbdMinted": {"type": "string", "example": "300"},
                "collateralRatio": {"type": "string"},
                "createdAt": {"type": "string"}
            }
        },
        "fixture.ProofResponse": {
            "type": "object",
            "properties": {
                "proof": {"type": "string"},
                "icr": {"type": "integer"},
                "collateralAmountUsd": {"type": "integer"},
                "vkey": {"type": "string"}
            }
        },
        "fixture.Fixture": {
            "type": "object",
            "properties": {
                "userId": {"type": "integer"},
                "userAddress": {"type": "string"},
                "icr": {"type": "integer"},
                "collateralAmount": {"type": "integer"},
                "liquidationThreshold": {"type": "integer"},
                "realTimeLtv": {"type": "integer"},
                "vkey": {"type": "string"},
                "publicValues": {"type": "string"},
                "proof": {"type": "string"},
                "proofSystem": {"type": "string"},
                "publicValuesAbi": {"type": "string"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "reason_code": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "handlers.ExecutionResponse": {
            "type": "object",
            "properties": {
                "sessionId": {"type": "string"},
                "system": {"type": "string"},
                "icr": {"type": "integer"},
                "collateralAmountUsd": {"type": "integer"},
                "publicValues": {"type": "string"},
                "constraints": {"type": "integer"}
            }
        },
        "handlers.VerifyResponse": {
            "type": "object",
            "properties": {
                "valid": {"type": "boolean"},
                "icr": {"type": "integer"},
                "collateralAmountUsd": {"type": "integer"}
            }
        },
        "proving.VerifyingKeyInfo": {
            "type": "object",
            "properties": {
                "system": {"type": "string"},
                "vkey": {"type": "string"},
                "imageId": {"type": "string"}
            }
        },
        "repository.ProofRecord": {
            "type": "object",
            "properties": {
                "Id": {"type": "integer"},
                "EventId": {"type": "string"},
                "UserId": {"type": "integer"},
                "UserAddress": {"type": "string"},
                "ProofSystem": {"type": "string"},
                "Icr": {"type": "integer"},
                "CollateralAmountUsd": {"type": "integer"},
                "Vkey": {"type": "string"},
                "PublicValues": {"type": "string"},
                "Proof": {"type": "string"},
                "CreatedAt": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "ICR Prover API",
	Description:      "Zero-knowledge proofs of a borrower's ICR and collateral value",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
