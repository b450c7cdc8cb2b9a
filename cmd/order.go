package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetcore/config"
	coremqtt "github.com/kilianp07/fleetcore/core/mqtt"
	"github.com/kilianp07/fleetcore/infra/mqtt"
)

var orderOperation string

var orderCmd = &cobra.Command{
	Use:   "order <vehicle> <point>",
	Short: "Publish a transport order to the running service",
	Args:  cobra.ExactArgs(2),
	RunE:  runOrder,
}

func init() {
	orderCmd.Flags().StringVar(&orderOperation, "operation", "", "operation on arrival (MOVE, Load, Unload)")
	rootCmd.AddCommand(orderCmd)
}

func runOrder(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt broker is not configured")
	}
	mc := cfg.MQTT
	suffix := time.Now().UnixNano()
	if mc.ClientID != "" {
		mc.ClientID = fmt.Sprintf("%s-%d", mc.ClientID, suffix)
	} else {
		mc.ClientID = fmt.Sprintf("fleet-order-%d", suffix)
	}
	client, err := mqtt.NewPahoClient(mc)
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	defer client.Disconnect()

	o := coremqtt.OrderMessage{VehicleID: args[0], TargetPoint: args[1], Operation: orderOperation}
	if err := mqtt.PublishOrder(client, mc.OrderTopic, o); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "order sent: %s -> %s\n", o.VehicleID, o.TargetPoint)
	return nil
}
