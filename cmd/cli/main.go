// Command cli is the tideline administration client: a cobra-based tool
// that sends admin commands (stream create, topic create and update) to a
// running broker over its TCP admin port, and can ping it.
package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tideline-io/tideline/internal/identifier"
	"github.com/tideline-io/tideline/internal/wire"
)

var (
	brokerAddr string
	quiet      bool
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:   "tideline-cli",
		Short: "Administration client for the tideline broker",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			viper.SetEnvPrefix("tideline_cli")
			viper.AutomaticEnv()
			if v := viper.GetString("broker_addr"); v != "" && brokerAddr == "" {
				brokerAddr = v
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&brokerAddr, "broker-addr", "127.0.0.1:8090", "broker admin TCP address")
	root.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress the lines printed on success")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "accepted; has no effect, the CLI writes no log output")

	root.AddCommand(streamCommand(), topicCommand(), pingCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func streamCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Manage streams",
	}

	var streamID uint32
	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := wire.CreateStream{StreamId: streamID, Name: name}.EncodeBinary()
			return runAdminCommand(wire.CommandCreateStream, body)
		},
	}
	create.Flags().Uint32Var(&streamID, "id", 0, "numeric stream id")
	create.Flags().StringVar(&name, "name", "", "stream name")

	cmd.AddCommand(create)
	return cmd
}

func topicCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topic",
		Short: "Manage topics",
	}

	var (
		streamID          uint32
		topicID           uint32
		name              string
		partitionsCount   uint32
		messageExpirySecs uint32
		maxTopicSizeBytes uint64
		replicationFactor uint8
	)

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a topic in a stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := wire.CreateTopic{
				StreamId:          identifier.FromNumeric(streamID),
				TopicId:           topicID,
				PartitionsCount:   partitionsCount,
				MessageExpirySecs: messageExpirySecs,
				MaxTopicSizeBytes: maxTopicSizeBytes,
				ReplicationFactor: replicationFactor,
				Name:              name,
			}.EncodeBinary()
			return runAdminCommand(wire.CommandCreateTopic, body)
		},
	}
	create.Flags().Uint32Var(&streamID, "stream-id", 0, "owning stream id")
	create.Flags().Uint32Var(&topicID, "id", 0, "numeric topic id")
	create.Flags().StringVar(&name, "name", "", "topic name")
	create.Flags().Uint32Var(&partitionsCount, "partitions", 1, "partition count")
	create.Flags().Uint32Var(&messageExpirySecs, "expiry-secs", 0, "message expiry in seconds (0 = unset)")
	create.Flags().Uint64Var(&maxTopicSizeBytes, "max-size-bytes", 0, "max topic size in bytes (0 = unset)")
	create.Flags().Uint8Var(&replicationFactor, "replication-factor", 1, "replication factor")

	update := &cobra.Command{
		Use:   "update",
		Short: "Update an existing topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := wire.UpdateTopic{
				StreamId:          identifier.FromNumeric(streamID),
				TopicId:           identifier.FromNumeric(topicID),
				MessageExpirySecs: messageExpirySecs,
				MaxTopicSizeBytes: maxTopicSizeBytes,
				ReplicationFactor: replicationFactor,
				Name:              name,
			}.EncodeBinary()
			return runAdminCommand(wire.CommandUpdateTopic, body)
		},
	}
	update.Flags().Uint32Var(&streamID, "stream-id", 0, "owning stream id")
	update.Flags().Uint32Var(&topicID, "id", 0, "numeric topic id")
	update.Flags().StringVar(&name, "name", "", "new topic name")
	update.Flags().Uint32Var(&messageExpirySecs, "expiry-secs", 0, "message expiry in seconds")
	update.Flags().Uint64Var(&maxTopicSizeBytes, "max-size-bytes", 0, "max topic size in bytes")
	update.Flags().Uint8Var(&replicationFactor, "replication-factor", 1, "replication factor")

	cmd.AddCommand(create, update)
	return cmd
}

func pingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check broker connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := net.DialTimeout("tcp", brokerAddr, 3*time.Second)
			if err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
			defer conn.Close()
			if !quiet {
				fmt.Printf("ok  %s\n", brokerAddr)
			}
			return nil
		},
	}
}

// runAdminCommand opens a connection, sends one framed admin command and
// prints "status\tok" on success (unless --quiet); the response body of a
// successful command is not printed.
func runAdminCommand(commandID uint16, body []byte) error {
	conn, err := net.DialTimeout("tcp", brokerAddr, 5*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()

	packet := make([]byte, 6+len(body))
	binary.BigEndian.PutUint16(packet[0:2], commandID)
	binary.BigEndian.PutUint32(packet[2:6], 1)
	copy(packet[6:], body)

	var sizeBuf [4]byte
	binary.BigEndian.PutUint32(sizeBuf[:], uint32(len(packet)))
	if _, err := conn.Write(sizeBuf[:]); err != nil {
		return err
	}
	if _, err := conn.Write(packet); err != nil {
		return err
	}

	var respSizeBuf [4]byte
	if _, err := io.ReadFull(conn, respSizeBuf[:]); err != nil {
		return err
	}
	respSize := binary.BigEndian.Uint32(respSizeBuf[:])
	resp := make([]byte, respSize)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return err
	}

	if len(resp) < 5 {
		return fmt.Errorf("malformed response")
	}
	status := resp[4]
	msgBody := resp[5:]

	if status != wire.StatusOk {
		return fmt.Errorf("broker error (status %d): %s", status, msgBody)
	}
	if !quiet {
		fmt.Println("status\tok")
	}
	return nil
}
