package feed

// UnknownAuthor is the attribution used when an item names no author.
const UnknownAuthor = "Unknown"

type FeederFetchRequest struct {
	URL string
}

// Item is a single feed entry. Author is never empty after parsing.
type Item struct {
	Title       string
	Description string
	Link        string
	Author      string
}

// Feed is a parsed feed document. Items keep document order, newest first.
type Feed struct {
	Title string
	Link  string
	Items []Item
}

// Latest returns the first item of the feed.
func (f *Feed) Latest() (Item, error) {
	if f == nil || len(f.Items) == 0 {
		return Item{}, ErrNoItems
	}
	return f.Items[0], nil
}
