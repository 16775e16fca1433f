package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/bytes"
)

// multipartOverhead leaves room for the form fields and part headers around the files.
const multipartOverhead = 64 << 10

// uploadLimit rejects request bodies larger than `files` uploads of `maxFileSize` bytes.
func uploadLimit(maxFileSize int64, files int) echo.MiddlewareFunc {
	return middleware.BodyLimit(bytes.Format(maxFileSize*int64(files) + multipartOverhead))
}
