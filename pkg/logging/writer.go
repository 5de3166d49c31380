package logging

import (
	"io"
	"os"
)

// stdout is replaced in tests
var stdout io.Writer = os.Stdout
