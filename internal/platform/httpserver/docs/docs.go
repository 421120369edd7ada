// Package docs is generated by swaggo/swag.
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
		"/v1/elections": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"voting-workflow"
				],
				"summary": "Deploy an election",
				"parameters": [
					{
						"type": "string",
						"description": "Caller account address",
						"name": "X-Account-Address",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Caller signature over the request digest",
						"name": "X-Signature",
						"in": "header"
					},
					{
						"type": "string",
						"description": "Unix seconds the signature was produced at",
						"name": "X-Signed-At",
						"in": "header"
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/http.ElectionResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				},
				"description": "Creates a new election owned by the calling account, in stage RegisteringVoters."
			}
		},
		"/v1/elections/{election_id}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"voting-workflow"
				],
				"summary": "Get an election",
				"parameters": [
					{
						"type": "string",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.ElectionResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/elections/{election_id}/workflow-status": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"voting-workflow"
				],
				"summary": "Get the workflow status",
				"parameters": [
					{
						"type": "string",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.WorkflowStatusResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/elections/{election_id}/workflow/{action}": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"voting-workflow"
				],
				"summary": "Advance the workflow",
				"parameters": [
					{
						"type": "string",
						"description": "Caller account address",
						"name": "X-Account-Address",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Caller signature over the request digest",
						"name": "X-Signature",
						"in": "header"
					},
					{
						"type": "string",
						"description": "Unix seconds the signature was produced at",
						"name": "X-Signed-At",
						"in": "header"
					},
					{
						"type": "string",
						"description": "Idempotency key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"type": "string",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "start-proposals-registering, end-proposals-registering, start-voting-session, end-voting-session or tally-votes",
						"name": "action",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.ReceiptResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				},
				"description": "Owner only. Applies one stage transition and emits WorkflowStatusChange."
			}
		},
		"/v1/elections/{election_id}/voters": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"voting-workflow"
				],
				"summary": "Register a voter",
				"parameters": [
					{
						"type": "string",
						"description": "Caller account address",
						"name": "X-Account-Address",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Caller signature over the request digest",
						"name": "X-Signature",
						"in": "header"
					},
					{
						"type": "string",
						"description": "Unix seconds the signature was produced at",
						"name": "X-Signed-At",
						"in": "header"
					},
					{
						"type": "string",
						"description": "Idempotency key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"type": "string",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					},
					{
						"description": "Voter payload",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/http.AddVoterRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.ReceiptResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"description": "Owner only, while registering voters."
			}
		},
		"/v1/elections/{election_id}/voters/{address}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"voting-workflow"
				],
				"summary": "Get a voter record",
				"parameters": [
					{
						"type": "string",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Voter address",
						"name": "address",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.VoterResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				},
				"description": "Unregistered accounts read as is_registered=false."
			}
		},
		"/v1/elections/{election_id}/proposals": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"voting-workflow"
				],
				"summary": "Register a proposal",
				"parameters": [
					{
						"type": "string",
						"description": "Caller account address",
						"name": "X-Account-Address",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Caller signature over the request digest",
						"name": "X-Signature",
						"in": "header"
					},
					{
						"type": "string",
						"description": "Unix seconds the signature was produced at",
						"name": "X-Signed-At",
						"in": "header"
					},
					{
						"type": "string",
						"description": "Idempotency key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"type": "string",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					},
					{
						"description": "Proposal payload",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/http.AddProposalRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.ReceiptResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"description": "Registered voters only, while proposals registration is open."
			},
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"voting-workflow"
				],
				"summary": "List proposals",
				"parameters": [
					{
						"type": "string",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.ListProposalsResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/elections/{election_id}/proposals/{proposal_id}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"voting-workflow"
				],
				"summary": "Get one proposal",
				"parameters": [
					{
						"type": "string",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					},
					{
						"type": "integer",
						"description": "Proposal id, starting at 1",
						"name": "proposal_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.ProposalResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/elections/{election_id}/votes": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"voting-workflow"
				],
				"summary": "Cast a vote",
				"parameters": [
					{
						"type": "string",
						"description": "Caller account address",
						"name": "X-Account-Address",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Caller signature over the request digest",
						"name": "X-Signature",
						"in": "header"
					},
					{
						"type": "string",
						"description": "Unix seconds the signature was produced at",
						"name": "X-Signed-At",
						"in": "header"
					},
					{
						"type": "string",
						"description": "Idempotency key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"type": "string",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					},
					{
						"description": "Vote payload",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/http.SetVoteRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.ReceiptResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"description": "Registered voters only, once, while the voting session is open."
			}
		},
		"/v1/elections/{election_id}/winner": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"voting-workflow"
				],
				"summary": "Get the winning proposal",
				"parameters": [
					{
						"type": "string",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.WinnerResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				},
				"description": "Readable once votes are tallied. proposal_id 0 means no votes were cast."
			}
		},
		"/v1/elections/{election_id}/events": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"voting-workflow"
				],
				"summary": "List the event log",
				"parameters": [
					{
						"type": "string",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "WorkflowStatusChange, VoterRegistered, ProposalRegistered or Voted",
						"name": "kind",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.ListEventsResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				},
				"description": "Events in emission order, optionally filtered by kind."
			}
		}
	},
	"definitions": {
		"http.ErrorResponse": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string"
				},
				"message": {
					"type": "string"
				}
			}
		},
		"http.ElectionResponse": {
			"type": "object",
			"properties": {
				"election_id": {
					"type": "string"
				},
				"owner": {
					"type": "string"
				},
				"stage": {
					"type": "integer"
				},
				"stage_name": {
					"type": "string"
				},
				"proposal_count": {
					"type": "integer"
				},
				"winning_proposal_id": {
					"type": "integer"
				},
				"created_at": {
					"type": "string"
				},
				"updated_at": {
					"type": "string"
				}
			}
		},
		"http.WorkflowStatusResponse": {
			"type": "object",
			"properties": {
				"election_id": {
					"type": "string"
				},
				"stage": {
					"type": "integer"
				},
				"stage_name": {
					"type": "string"
				}
			}
		},
		"http.AddVoterRequest": {
			"type": "object",
			"properties": {
				"address": {
					"type": "string"
				}
			}
		},
		"http.AddProposalRequest": {
			"type": "object",
			"properties": {
				"description": {
					"type": "string"
				}
			}
		},
		"http.SetVoteRequest": {
			"type": "object",
			"properties": {
				"proposal_id": {
					"type": "integer"
				}
			}
		},
		"http.VoterResponse": {
			"type": "object",
			"properties": {
				"election_id": {
					"type": "string"
				},
				"address": {
					"type": "string"
				},
				"is_registered": {
					"type": "boolean"
				},
				"has_voted": {
					"type": "boolean"
				},
				"voted_proposal_id": {
					"type": "integer"
				}
			}
		},
		"http.ProposalResponse": {
			"type": "object",
			"properties": {
				"election_id": {
					"type": "string"
				},
				"proposal_id": {
					"type": "integer"
				},
				"description": {
					"type": "string"
				},
				"vote_count": {
					"type": "integer"
				}
			}
		},
		"http.ListProposalsResponse": {
			"type": "object",
			"properties": {
				"items": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/http.ProposalResponse"
					}
				}
			}
		},
		"http.WinnerResponse": {
			"type": "object",
			"properties": {
				"election_id": {
					"type": "string"
				},
				"proposal_id": {
					"type": "integer"
				},
				"proposal": {
					"$ref": "#/definitions/http.ProposalResponse"
				}
			}
		},
		"http.EventResponse": {
			"type": "object",
			"properties": {
				"sequence": {
					"type": "integer"
				},
				"kind": {
					"type": "string"
				},
				"previous_status": {
					"type": "integer"
				},
				"new_status": {
					"type": "integer"
				},
				"voter": {
					"type": "string"
				},
				"proposal_id": {
					"type": "integer"
				},
				"topic": {
					"type": "string"
				},
				"data": {
					"type": "string"
				},
				"occurred_at": {
					"type": "string"
				}
			}
		},
		"http.ListEventsResponse": {
			"type": "object",
			"properties": {
				"items": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/http.EventResponse"
					}
				}
			}
		},
		"http.ReceiptResponse": {
			"type": "object",
			"properties": {
				"election_id": {
					"type": "string"
				},
				"stage": {
					"type": "integer"
				},
				"stage_name": {
					"type": "string"
				},
				"events": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/http.EventResponse"
					}
				}
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
	Title:            "Civitas Voting API",
	Description:      "Staged voting elections: voter registry, proposals, votes and tally.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
