package main

import (
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"

	"github.com/drunlade/go-scp/scp"
)

var logger zerolog.Logger

type serverConfig struct {
	Listen         string `yaml:"listen"`
	HostKeyFile    string `yaml:"host_key_file"`
	AuthorizedKeys string `yaml:"authorized_keys"`
	Root           string `yaml:"root"`
	LogLevel       string `yaml:"log_level"`
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		Listen:   ":2222",
		Root:     ".",
		LogLevel: "info",
	}
}

func main() {
	logger = zerolog.New(
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339},
	).With().Timestamp().Logger()

	configPath := pflag.String("config", "", "YAML configuration file")
	listen := pflag.String("listen", "", "Address to listen on (overrides config)")
	root := pflag.String("root", "", "Transfer root directory (overrides config)")
	loglevel := pflag.String("loglevel", "", "Log level (overrides config)")
	pflag.Parse()

	cfg := defaultServerConfig()
	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			logger.Fatal().Msgf("Error reading config: %v", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			logger.Fatal().Msgf("Error parsing config: %v", err)
		}
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *root != "" {
		cfg.Root = *root
	}
	if *loglevel != "" {
		cfg.LogLevel = *loglevel
	}

	var zll zerolog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "trace":
		zll = zerolog.TraceLevel
	case "debug":
		zll = zerolog.DebugLevel
	case "info":
		zll = zerolog.InfoLevel
	case "warn":
		zll = zerolog.WarnLevel
	case "error":
		zll = zerolog.ErrorLevel
	default:
		logger.Fatal().Msgf("Invalid log level: %v", cfg.LogLevel)
	}
	logger = logger.Level(zll)

	if cfg.HostKeyFile == "" {
		logger.Fatal().Msg("A host key file is required (host_key_file)")
	}
	keyBytes, err := os.ReadFile(cfg.HostKeyFile)
	if err != nil {
		logger.Fatal().Msgf("Error reading host key: %v", err)
	}
	hostKey, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		logger.Fatal().Msgf("Error parsing host key: %v", err)
	}

	sshConfig := &ssh.ServerConfig{}
	if cfg.AuthorizedKeys != "" {
		authorized, err := loadAuthorizedKeys(cfg.AuthorizedKeys)
		if err != nil {
			logger.Fatal().Msgf("Error loading authorized keys: %v", err)
		}
		sshConfig.PublicKeyCallback = func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if authorized[string(key.Marshal())] {
				return nil, nil
			}
			return nil, os.ErrPermission
		}
	} else {
		logger.Info().Msg("No authorized_keys configured, accepting any client")
		sshConfig.NoClientAuth = true
	}
	sshConfig.AddHostKey(hostKey)

	rootDir, err := filepath.Abs(cfg.Root)
	if err != nil {
		logger.Fatal().Msgf("Error resolving root: %v", err)
	}

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		logger.Fatal().Msgf("Error binding listener: %v", err)
	}
	logger.Info().Msgf("Serving scp from %s on %s", rootDir, cfg.Listen)
	for {
		conn, err := listener.Accept()
		if err != nil {
			logger.Error().Msgf("Error accepting connection: %v", err)
			continue
		}
		go handleConn(conn, sshConfig, rootDir)
	}
}

func loadAuthorizedKeys(path string) (map[string]bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	keys := map[string]bool{}
	for len(raw) > 0 {
		key, _, _, rest, err := ssh.ParseAuthorizedKey(raw)
		if err != nil {
			return nil, err
		}
		keys[string(key.Marshal())] = true
		raw = rest
	}
	return keys, nil
}

func handleConn(conn net.Conn, config *ssh.ServerConfig, rootDir string) {
	defer conn.Close()

	sconn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		logger.Debug().Msgf("Handshake with %v failed: %v", conn.RemoteAddr(), err)
		return
	}
	defer sconn.Close()
	logger.Info().Msgf("Connection from %v (%s)", conn.RemoteAddr(), sconn.User())
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			logger.Error().Msgf("Error accepting channel: %v", err)
			continue
		}
		go handleSession(channel, requests, rootDir, sconn.User())
	}
}

func handleSession(channel ssh.Channel, requests <-chan *ssh.Request, rootDir, user string) {
	defer channel.Close()

	for req := range requests {
		if req.Type != "exec" {
			req.Reply(false, nil)
			continue
		}
		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			req.Reply(false, nil)
			continue
		}
		fields := strings.Fields(payload.Command)
		if len(fields) == 0 || filepath.Base(fields[0]) != "scp" {
			req.Reply(false, nil)
			continue
		}
		req.Reply(true, nil)

		events := &scp.Events{
			EndFile: func(op scp.Op, path string, size int64, perm fs.FileMode, err error) {
				if err != nil {
					logger.Error().Msgf("%s: %s %s failed: %v", user, op, path, err)
					return
				}
				logger.Info().Msgf("%s: %s %s (%s)", user, op, path, humanize.Bytes(uint64(size)))
			},
		}
		err := scp.HandleChannel(channel, payload.Command,
			scp.WithFileSystem(scp.RootedFS{Root: rootDir}),
			scp.WithEvents(events),
			scp.WithLogger(scp.ZerologLogger{L: logger}),
		)
		if err != nil {
			logger.Debug().Msgf("%s: transfer ended with error: %v", user, err)
		}
		return
	}
}
