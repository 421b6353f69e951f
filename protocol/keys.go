package protocol

// Wire format tunables.
const (
	// ConfigInterval is how many Plot calls share one full configuration record.
	ConfigInterval = 50
	// Precision is the number of fractional digits printed for every value.
	Precision = 8
	// OuterKey terminates every record so a listener can find boundaries in a corrupt stream.
	OuterKey = '#'
	// lineEnding follows OuterKey, the firmware used println.
	lineEnding = "\r\n"
)

// Transmission keys. TimeKey and TitleKey share "t", one is top level and one is per graph.
const (
	TimeKey            = "t"
	NumGraphKey        = "ng"
	LastUpdatedKey     = "lu"
	GraphsKey          = "g"
	TitleKey           = "t"
	XvYKey             = "xvy"
	PointsDisplayedKey = "pd"
	SizeKey            = "sz"
	LabelsKey          = "l"
	ColoursKey         = "c"
	DataKey            = "d"
)
