package sheet

// Columns names the header of every field a row can carry. All names can be
// overridden from configuration.
type Columns struct {
	Topic     string `mapstructure:"topic" yaml:"topic"`
	Type      string `mapstructure:"type" yaml:"type"`
	WordCount string `mapstructure:"word_count" yaml:"word_count"`
	Primary   string `mapstructure:"primary_keywords" yaml:"primary_keywords"`
	Secondary string `mapstructure:"secondary_keywords" yaml:"secondary_keywords"`
	Link1     string `mapstructure:"link1" yaml:"link1"`
	Anchor1   string `mapstructure:"anchor1" yaml:"anchor1"`
	Link2     string `mapstructure:"link2" yaml:"link2"`
	Anchor2   string `mapstructure:"anchor2" yaml:"anchor2"`
	Title     string `mapstructure:"title" yaml:"title"`
	H2        string `mapstructure:"h2" yaml:"h2"`
	H3        string `mapstructure:"h3" yaml:"h3"`
}

// DefaultColumns returns the Persian header names used by the content team.
func DefaultColumns() Columns {
	return Columns{
		Topic:     "موضوع",
		Type:      "نوع مقاله",
		WordCount: "تعداد کلمه",
		Primary:   "کلمه کلیدی اصلی",
		Secondary: "کلمات کلیدی فرعی",
		Link1:     "لینک1",
		Anchor1:   "انکرتکست1",
		Link2:     "لینک2",
		Anchor2:   "انکرتکست2",
		Title:     "عنوان اصلی(H1)",
		H2:        "عناوین H2",
		H3:        "عناوین H3",
	}
}

// Required lists the columns a sheet must have before any row is processed.
func (c Columns) Required() []string {
	return []string{c.Topic, c.Type, c.WordCount, c.Primary, c.Secondary, c.Link1, c.Anchor1, c.Title}
}

// withDefaults fills blank names from DefaultColumns.
func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&c.Topic, d.Topic)
	fill(&c.Type, d.Type)
	fill(&c.WordCount, d.WordCount)
	fill(&c.Primary, d.Primary)
	fill(&c.Secondary, d.Secondary)
	fill(&c.Link1, d.Link1)
	fill(&c.Anchor1, d.Anchor1)
	fill(&c.Link2, d.Link2)
	fill(&c.Anchor2, d.Anchor2)
	fill(&c.Title, d.Title)
	fill(&c.H2, d.H2)
	fill(&c.H3, d.H3)
	return c
}
