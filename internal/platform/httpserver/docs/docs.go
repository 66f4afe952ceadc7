// Package docs holds the OpenAPI document served under /swagger/.
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
        "/v1/votings": {
            "get": {
                "description": "Votings in creation order. An unknown phase value yields an empty list.",
                "produces": ["application/json"],
                "tags": ["ballot-engine"],
                "summary": "List votings",
                "parameters": [
                    {"type": "string", "description": "upcoming, current or past", "name": "phase", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VotingListResponse"}}
                }
            },
            "post": {
                "description": "Creates a voting after validating every field and the exact hosting fee.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ballot-engine"],
                "summary": "Host a voting",
                "parameters": [
                    {"type": "string", "description": "Caller account address", "name": "X-Caller-Address", "in": "header", "required": true},
                    {"type": "string", "description": "Replay protection key", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Voting definition", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.HostVotingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.HostVotingResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "402": {"description": "Payment Required", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/votings/{voting_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ballot-engine"],
                "summary": "Get a voting",
                "parameters": [
                    {"type": "integer", "description": "Voting id", "name": "voting_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VotingDetailResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/votings/{voting_id}/candidates": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ballot-engine"],
                "summary": "Per-candidate vote counts",
                "parameters": [
                    {"type": "integer", "description": "Voting id", "name": "voting_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.CandidateVotesResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/votings/{voting_id}/results": {
            "get": {
                "description": "Every candidate tied at the highest count is a winner.",
                "produces": ["application/json"],
                "tags": ["ballot-engine"],
                "summary": "Tally and winners",
                "parameters": [
                    {"type": "integer", "description": "Voting id", "name": "voting_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ResultResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/votings/{voting_id}/eligibility": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ballot-engine"],
                "summary": "Check whether a voter can vote now",
                "parameters": [
                    {"type": "integer", "description": "Voting id", "name": "voting_id", "in": "path", "required": true},
                    {"type": "string", "description": "Voter address, defaults to the caller", "name": "voter", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.EligibilityResponse"}}
                }
            }
        },
        "/v1/votings/{voting_id}/votes": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["ballot-engine"],
                "summary": "Cast a ballot",
                "parameters": [
                    {"type": "string", "description": "Voter account address", "name": "X-Caller-Address", "in": "header", "required": true},
                    {"type": "integer", "description": "Voting id", "name": "voting_id", "in": "path", "required": true},
                    {"description": "Chosen candidate", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.CastVoteRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/ownership": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ballot-engine"],
                "summary": "Current owner",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.OwnershipResponse"}}
                }
            }
        },
        "/v1/ownership/transfer": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["ballot-engine"],
                "summary": "Transfer ownership",
                "parameters": [
                    {"type": "string", "description": "Current owner address", "name": "X-Caller-Address", "in": "header", "required": true},
                    {"description": "New owner", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.TransferOwnershipRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "http.HostVotingRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "start_time": {"type": "integer"},
                "end_time": {"type": "integer"},
                "candidates": {"type": "array", "items": {"type": "string"}},
                "allowed_voters": {"type": "array", "items": {"type": "string"}},
                "payment_wei": {"type": "string"}
            }
        },
        "http.HostVotingResponse": {
            "type": "object",
            "properties": {
                "voting_id": {"type": "integer"},
                "replayed": {"type": "boolean"}
            }
        },
        "http.VotingSummaryResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "hoster": {"type": "string"},
                "start_time": {"type": "integer"},
                "end_time": {"type": "integer"},
                "phase": {"type": "string"}
            }
        },
        "http.VotingListResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/http.VotingSummaryResponse"}}
            }
        },
        "http.VotingDetailResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "hoster": {"type": "string"},
                "start_time": {"type": "integer"},
                "end_time": {"type": "integer"},
                "phase": {"type": "string"},
                "candidates": {"type": "array", "items": {"type": "string"}},
                "allowed_voters": {"type": "array", "items": {"type": "string"}},
                "ballot_count": {"type": "integer"}
            }
        },
        "http.CandidateVotesItem": {
            "type": "object",
            "properties": {
                "candidate": {"type": "string"},
                "vote_count": {"type": "integer"}
            }
        },
        "http.CandidateVotesResponse": {
            "type": "object",
            "properties": {
                "voting_id": {"type": "integer"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/http.CandidateVotesItem"}}
            }
        },
        "http.ResultResponse": {
            "type": "object",
            "properties": {
                "voting_id": {"type": "integer"},
                "phase": {"type": "string"},
                "final": {"type": "boolean"},
                "total_votes": {"type": "integer"},
                "tally": {"type": "array", "items": {"$ref": "#/definitions/http.CandidateVotesItem"}},
                "winners": {"type": "array", "items": {"type": "string"}}
            }
        },
        "http.EligibilityResponse": {
            "type": "object",
            "properties": {
                "voting_id": {"type": "integer"},
                "voter": {"type": "string"},
                "can_vote": {"type": "boolean"}
            }
        },
        "http.CastVoteRequest": {
            "type": "object",
            "properties": {
                "candidate": {"type": "string"}
            }
        },
        "http.OwnershipResponse": {
            "type": "object",
            "properties": {
                "owner": {"type": "string"}
            }
        },
        "http.TransferOwnershipRequest": {
            "type": "object",
            "properties": {
                "new_owner": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "ballotbox API",
	Description:      "Paid votings with eligibility lists, single-vote ballots and co-winner tallies.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
