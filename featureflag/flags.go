package featureflag

type Flag string

const (
	// Stops answering collision requests.
	FlagDisablePlacement Flag = "DISABLE_PLACEMENT"

	// Stops running free space explorations.
	FlagDisableExplore Flag = "DISABLE_EXPLORE"

	// Rejects explore requests while an exploration runs in the session
	// instead of superseding it.
	FlagExploreIgnoreWhileBusy Flag = "EXPLORE_IGNORE_WHILE_BUSY"

	// Sends exploration markers only to the participant that asked for the
	// exploration.
	FlagDisableMarkerBroadcast Flag = "DISABLE_MARKER_BROADCAST"
)

// Known returns all the flags understood by the server.
func Known() []Flag {
	return []Flag{
		FlagDisablePlacement,
		FlagDisableExplore,
		FlagExploreIgnoreWhileBusy,
		FlagDisableMarkerBroadcast,
	}
}
