// Command hasim simulates a hearing aid for local testing. It accepts the
// bridge's TCP connection, decodes the incoming ADPCM byte stream and writes
// the reconstructed PCM to a WAV file on disconnect.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/picoasha/bridge/internal/audio"
	"github.com/picoasha/bridge/internal/codec"
)

func main() {
	listenAddr := flag.String("listen", "127.0.0.1:9100", "Address to listen on")
	bitRate := flag.Int("bit-rate", codec.Rate64000, "Codec bit rate (48000, 56000 or 64000)")
	options := flag.Int("options", 0, "Codec option flags")
	sampleRate := flag.Int("sample-rate", 16000, "Output WAV sample rate")
	outPath := flag.String("out", "decoded.wav", "Output WAV file path (suffix added per connection)")
	flag.Parse()

	if !codec.IsValidRate(*bitRate) {
		log.Printf("Unrecognized bit rate %d, decoding as 64000", *bitRate)
	}

	listener, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", *listenAddr, err)
	}
	defer listener.Close()

	log.Printf("Hearing aid simulator listening on %s", *listenAddr)
	log.Printf("Decoding at bit rate %d, writing WAV to %s", *bitRate, *outPath)

	connID := 0
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("Accept failed: %v", err)
			continue
		}
		connID++
		go handleConnection(conn, connID, *bitRate, *options, *sampleRate, *outPath)
	}
}

func handleConnection(conn net.Conn, id int, bitRate, options, sampleRate int, outPath string) {
	defer conn.Close()

	log.Printf("[conn %d] Bridge connected from %s", id, conn.RemoteAddr())

	decoder := codec.NewDecoder(bitRate, options)

	var samples []int16
	buf := make([]byte, 4096)
	total := 0

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			total += n
			pcm := make([]int16, n)
			decoded := decoder.Decode(pcm, buf[:n])
			samples = append(samples, pcm[:decoded]...)
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("[conn %d] Read error: %v", id, err)
			}
			break
		}
	}

	log.Printf("[conn %d] Bridge disconnected, received %d bytes, decoded %d samples",
		id, total, len(samples))

	if len(samples) == 0 {
		return
	}

	wav, err := audio.EncodeWAV(samples, sampleRate)
	if err != nil {
		log.Printf("[conn %d] Failed to encode WAV: %v", id, err)
		return
	}

	path := outPath
	if id > 1 {
		path = numberedPath(outPath, id)
	}
	if err := os.WriteFile(path, wav, 0644); err != nil {
		log.Printf("[conn %d] Failed to write %s: %v", id, path, err)
		return
	}

	log.Printf("[conn %d] Wrote %s (%d bytes)", id, path, len(wav))
}

func numberedPath(path string, id int) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s-%d%s", base, id, ext)
}
