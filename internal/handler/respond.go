package handler

import "github.com/labstack/echo/v4"

// Response envelopes.  Success payloads are {status:"success", ...}; client
// mistakes are {status:"fail", message}; server faults are
// {status:"error", message}.  Every handler in this package goes through
// these helpers so the shapes stay uniform.

func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"status": "fail", "message": msg})
}

func serverError(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"status": "error", "message": msg})
}
