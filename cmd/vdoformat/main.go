// Command vdoformat writes and adjusts the on-disk metadata of a VDO
// volume on a backing block device.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dm-vdo/vdoformat/geometry"
	"github.com/dm-vdo/vdoformat/internal/vdoerr"
	"github.com/dm-vdo/vdoformat/layer"
	"github.com/dm-vdo/vdoformat/volume"
)

var log = logrus.New()

var (
	physicalBlocks      uint64
	logicalBlocks       uint64
	slabSize            uint64
	slabJournalBlocks   uint64
	recoveryJournalSize uint64
	indexMemoryGB       uint32
	sparseIndex         bool
	checkpointFrequency uint32
	verbose             bool
)

func main() {
	root := &cobra.Command{
		Use:   "vdoformat",
		Short: "Format and reconfigure VDO volumes",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(formatCmd(), forceRebuildCmd(), readOnlyCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func formatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format DEVICE",
		Short: "Write a new VDO volume onto DEVICE",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runFormat(args[0])
		},
	}
	cmd.Flags().Uint64Var(&physicalBlocks, "physical-blocks", 0, "physical block count (0 = use device size)")
	cmd.Flags().Uint64Var(&logicalBlocks, "logical-blocks", 0, "logical block count (0 = derive maximum)")
	cmd.Flags().Uint64Var(&slabSize, "slab-size", 8192, "slab size in blocks (power of two)")
	cmd.Flags().Uint64Var(&slabJournalBlocks, "slab-journal-blocks", 224, "slab journal size in blocks")
	cmd.Flags().Uint64Var(&recoveryJournalSize, "recovery-journal-size", 2048, "recovery journal size in blocks")
	cmd.Flags().Uint32Var(&indexMemoryGB, "index-memory", 0, "dedup-index memory in GB (0 selects the 256MB class)")
	cmd.Flags().BoolVar(&sparseIndex, "sparse", false, "use a sparse dedup index")
	cmd.Flags().Uint32Var(&checkpointFrequency, "checkpoint-frequency", 0, "dedup-index checkpoint frequency")
	return cmd
}

func forceRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force-rebuild DEVICE",
		Short: "Mark a read-only VDO volume for a forced rebuild",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runReconfigure(args[0], true, volume.StateForceRebuild)
		},
	}
}

func readOnlyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read-only DEVICE",
		Short: "Mark a VDO volume read-only",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runReconfigure(args[0], false, volume.StateReadOnlyMode)
		},
	}
}

// parseIndexMemory resolves the --index-memory flag to a geometry
// memory class. A nonzero integer is GB; zero selects the fixed 256MB
// class. The 512MB and 768MB classes are not reachable from this flag.
func parseIndexMemory(gb uint32) geometry.MemoryClassMB {
	if gb == 0 {
		return geometry.MemoryClass256MB
	}
	return geometry.MemoryClassGB(gb)
}

func runFormat(device string) {
	bd, err := layer.OpenBlockDevice(device)
	if err != nil {
		fail(err)
	}
	defer bd.Close()

	cfg := volume.Config{
		PhysicalBlocks:      physicalBlocks,
		LogicalBlocks:       logicalBlocks,
		SlabSize:            slabSize,
		SlabJournalBlocks:   slabJournalBlocks,
		RecoveryJournalSize: recoveryJournalSize,
	}
	indexCfg := geometry.IndexConfig{
		MemoryClass:         parseIndexMemory(indexMemoryGB),
		CheckpointFrequency: checkpointFrequency,
		Sparse:              sparseIndex,
	}

	if err := volume.Format(cfg, indexCfg, bd); err != nil {
		fail(err)
	}
	log.Info("format complete")
}

func runReconfigure(device string, requireReadOnly bool, newState volume.VDOState) {
	bd, err := layer.OpenBlockDevice(device)
	if err != nil {
		fail(err)
	}
	defer bd.Close()

	if err := volume.UpdateSuperBlockState(bd, requireReadOnly, newState); err != nil {
		fail(err)
	}
	log.Infof("state set to %s", newState)
}

// fail logs err with its taxonomy kind and exits with a non-zero code
// mapped from that kind, per spec.md section 7.
func fail(err error) {
	kind := vdoerr.Classify(err)
	log.Errorf("%s: %v", kind, err)
	os.Exit(exitCode(kind))
}

func exitCode(kind vdoerr.Kind) int {
	if kind == vdoerr.KindUnknown {
		return 1
	}
	return int(kind) + 1
}
