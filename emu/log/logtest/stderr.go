package logtest

import "os"

var stderr = os.Stderr
