package logger

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// JSONで出す。dev は debug まで
func Setup(env string) {
	SetupTo(os.Stdout, env)
}

func SetupTo(w io.Writer, env string) {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(w)
	if env == "prod" {
		log.SetLevel(log.InfoLevel)
		return
	}
	log.SetLevel(log.DebugLevel)
}
