package animelist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = `<?xml version="1.0" encoding="UTF-8" ?>
<myanimelist>
  <myinfo>
    <user_name>testuser</user_name>
    <user_total_anime>4</user_total_anime>
  </myinfo>
  <anime>
    <series_animedb_id>9253</series_animedb_id>
    <series_title><![CDATA[Steins;Gate]]></series_title>
    <series_type>TV</series_type>
    <series_episodes>24</series_episodes>
    <my_score>10</my_score>
    <my_status>Completed</my_status>
  </anime>
  <anime>
    <series_animedb_id>457</series_animedb_id>
    <series_title><![CDATA[Mushishi]]></series_title>
    <series_type>TV</series_type>
    <series_episodes>26</series_episodes>
    <my_score>9</my_score>
    <my_status>Completed</my_status>
  </anime>
  <anime>
    <series_animedb_id>21</series_animedb_id>
    <series_title><![CDATA[One Piece]]></series_title>
    <series_type>TV</series_type>
    <series_episodes>0</series_episodes>
    <my_score>7</my_score>
    <my_status>Watching</my_status>
  </anime>
  <anime>
    <series_animedb_id>30</series_animedb_id>
    <series_title><![CDATA[Neon Genesis Evangelion]]></series_title>
    <series_type>TV</series_type>
    <series_episodes>26</series_episodes>
    <my_score>6</my_score>
    <my_status>Completed</my_status>
  </anime>
</myanimelist>`

func TestParse(t *testing.T) {
	al, err := Parse(strings.NewReader(sampleExport))
	require.NoError(t, err)

	assert.Equal(t, "testuser", al.MyInfo.UserName)
	require.Len(t, al.Anime, 4)
	assert.Equal(t, 9253, al.Anime[0].SeriesID)
	assert.Equal(t, "Steins;Gate", al.Anime[0].Title)
	assert.Equal(t, 24, al.Anime[0].Episodes)
}

func TestFavoritesFiltersAndSorts(t *testing.T) {
	al, err := Parse(strings.NewReader(sampleExport))
	require.NoError(t, err)

	favorites := al.Favorites(8)
	require.Len(t, favorites, 2, "watching and low-scored entries excluded")
	assert.Equal(t, "Steins;Gate", favorites[0].Title)
	assert.Equal(t, "Mushishi", favorites[1].Title)

	all := al.Favorites(0)
	assert.Len(t, all, 3, "minScore 0 keeps every completed entry")
}

func TestParseInvalidXML(t *testing.T) {
	_, err := Parse(strings.NewReader("not xml"))
	require.Error(t, err)
}
