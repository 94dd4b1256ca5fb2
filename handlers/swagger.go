package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the user admin API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine, basePath string) {
	doc := strings.ReplaceAll(swaggerJSON, "{{base}}", strings.TrimRight(basePath, "/"))

	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>useradmin — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "useradmin", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "User": {
        "type": "object",
        "properties": {
          "objectId": { "type": "string", "format": "uuid", "readOnly": true },
          "email": { "type": "string" },
          "displayName": { "type": "string" },
          "givenName": { "type": "string" },
          "surname": { "type": "string" },
          "accountEnabled": { "type": "boolean" },
          "attributes": { "type": "object", "additionalProperties": true }
        }
      }
    }
  },
  "paths": {
    "{{base}}/users": {
      "get": {
        "summary": "Get one user by objectId, search by email, or list all users",
        "parameters": [
          { "name": "objectId", "in": "query", "schema": { "type": "string", "format": "uuid" } },
          { "name": "emailSearch", "in": "query", "schema": { "type": "string" } }
        ],
        "responses": { "200": { "description": "user or user collection" }, "400": { "description": "malformed objectId" }, "404": { "description": "objectId not found" }, "500": { "description": "directory fault" } }
      },
      "post": {
        "summary": "Create a user; the directory assigns objectId",
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/User" } } } },
        "responses": { "200": { "description": "created user" }, "400": { "description": "invalid user" }, "409": { "description": "conflict" }, "500": { "description": "directory fault" } }
      }
    },
    "{{base}}/users/{objectId}": {
      "put": {
        "summary": "Replace a user",
        "parameters": [ { "name": "objectId", "in": "path", "required": true, "schema": { "type": "string" } } ],
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/User" } } } },
        "responses": { "204": { "description": "updated" }, "400": { "description": "invalid body" }, "404": { "description": "not found" }, "500": { "description": "directory fault" } }
      },
      "delete": {
        "summary": "Delete a user",
        "parameters": [ { "name": "objectId", "in": "path", "required": true, "schema": { "type": "string" } } ],
        "responses": { "204": { "description": "deleted" }, "404": { "description": "not found" }, "500": { "description": "directory fault" } }
      }
    },
    "{{base}}/users/export": {
      "post": { "summary": "Export all users to object storage", "responses": { "200": { "description": "key and presigned url" }, "500": { "description": "export failed" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
