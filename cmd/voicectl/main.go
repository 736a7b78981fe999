// Command voicectl is a development client for the voicecmd server.
//
//	voicectl process --file command.wav
//	voicectl stream --file command.wav --realtime
//	voicectl token --device kitchen-tv --secret $VOICECMD_AUTH_JWT_SECRET
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const usage = `usage: voicectl <command> [flags]

commands:
  process   upload a recorded clip to POST /process
  stream    stream a clip's PCM over /ws and wait for the result
  token     print a device token signed with the server secret
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	godotenv.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := os.Args[2:]
	switch os.Args[1] {
	case "process":
		err = runProcess(args, logger)
	case "stream":
		err = runStream(args, logger)
	case "token":
		err = runToken(args, logger)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("Command failed", zap.String("command", os.Args[1]), zap.Error(err))
		os.Exit(1)
	}
}
