package extract

type Metric int

const (
	Subscribers Metric = iota
	Views
	Videos
)

var Metrics = []Metric{Subscribers, Views, Videos}

func (m Metric) String() string {
	switch m {
	case Subscribers:
		return "subs"
	case Views:
		return "views"
	case Videos:
		return "videos"
	}
	return "unknown"
}
