package log

import "os"

var stderrWriter = os.Stderr
