package featureflag

type Flag string

const (
	// Disables the spatial index split/owner diagnostics listeners wired by
	// the server.
	FlagDisablePartitionDiagnostics Flag = "DISABLE_PARTITION_DIAGNOSTICS"

	// Disables periodic board snapshot writes.
	FlagDisableSnapshots Flag = "DISABLE_SNAPSHOTS"

	// Logs every sequenced operation. Noisy; debugging only.
	FlagVerboseOpLogs Flag = "VERBOSE_OP_LOGS"
)
