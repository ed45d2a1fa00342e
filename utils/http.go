// utils/http.go - HTTP utility functions for fiber
package utils

import (
	"github.com/gofiber/fiber/v2"
)

// JSONError sends a JSON error response
func JSONError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// JSONSuccess sends a JSON success response
func JSONSuccess(c *fiber.Ctx, data interface{}) error {
	return JSONStatus(c, fiber.StatusOK, data)
}

// JSONStatus sends a success response with a custom status code
func JSONStatus(c *fiber.Ctx, status int, data interface{}) error {
	response := fiber.Map{
		"success": true,
	}

	// Merge data into response
	if dataMap, ok := data.(fiber.Map); ok {
		for k, v := range dataMap {
			response[k] = v
		}
	} else {
		response["data"] = data
	}

	return c.Status(status).JSON(response)
}

// ParseBody parses the JSON request body and validates it
func ParseBody(c *fiber.Ctx, v interface{}) error {
	if err := c.BodyParser(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := ValidateStruct(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// QueryInt gets an integer query parameter clamped to [min, max]
func QueryInt(c *fiber.Ctx, key string, def, min, max int) int {
	n := c.QueryInt(key, def)
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
