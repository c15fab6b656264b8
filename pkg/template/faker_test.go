package template

import (
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const identityTemplate = "{{faker.name}}|{{faker.uuid4}}|{{faker.email}}|{{faker.address}}|{{faker.random_number}}"

func TestFaker_SameSeedSameSequence(t *testing.T) {
	a := New(WithFakerSeed(DefaultFakerSeed))
	b := New(WithFakerSeed(DefaultFakerSeed))

	for i := 0; i < 5; i++ {
		assert.Equal(t, a.ExpandString(identityTemplate), b.ExpandString(identityTemplate))
	}
}

func TestFaker_SequenceAdvances(t *testing.T) {
	engine := New()

	first := engine.ExpandString("{{faker.uuid4}}")
	second := engine.ExpandString("{{faker.uuid4}}")
	assert.NotEqual(t, first, second)
}

func TestFaker_DifferentSeeds(t *testing.T) {
	a := New(WithFakerSeed(1))
	b := New(WithFakerSeed(2))

	assert.NotEqual(t, a.ExpandString(identityTemplate), b.ExpandString(identityTemplate))
}

func TestFaker_Reseed(t *testing.T) {
	f := NewFaker(9)
	engine := New(WithFaker(f))

	first := engine.ExpandString(identityTemplate)
	engine.ExpandString(identityTemplate)

	f.Reseed(9)
	assert.Equal(t, first, engine.ExpandString(identityTemplate))
	assert.Equal(t, uint64(9), engine.Faker().Seed())
}

func TestFaker_UUID4(t *testing.T) {
	engine := New()

	id, err := uuid.Parse(engine.ExpandString("{{faker.uuid4}}"))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())
	assert.Equal(t, uuid.RFC4122, id.Variant())
}

func TestFaker_Defaults(t *testing.T) {
	engine := New()

	t.Run("random_number has at most 8 digits", func(t *testing.T) {
		n, err := strconv.ParseInt(engine.ExpandString("{{faker.random_number}}"), 10, 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(0))
		assert.Less(t, n, int64(100000000))
	})

	t.Run("text is capped at 200 characters", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			text := engine.ExpandString("{{faker.text}}")
			assert.LessOrEqual(t, len(text), 200)
			assert.True(t, strings.HasSuffix(text, "."))
		}
	})

	t.Run("sentence ends with a period", func(t *testing.T) {
		s := engine.ExpandString("{{faker.sentence}}")
		assert.True(t, strings.HasSuffix(s, "."))
		assert.Equal(t, strings.ToUpper(s[:1]), s[:1])
	})

	t.Run("paragraph has three sentences", func(t *testing.T) {
		p := engine.ExpandString("{{faker.paragraph}}")
		assert.Equal(t, 3, strings.Count(p, "."))
	})

	t.Run("words renders a list of three", func(t *testing.T) {
		assert.Regexp(t, `^\['[a-z]+', '[a-z]+', '[a-z]+'\]$`, engine.ExpandString("{{faker.words}}"))
	})

	t.Run("pybool renders capitalised booleans", func(t *testing.T) {
		assert.Contains(t, []string{"True", "False"}, engine.ExpandString("{{faker.pybool}}"))
	})
}

func TestFaker_Parameters(t *testing.T) {
	engine := New()

	t.Run("random_number with fixed length", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			n, err := strconv.Atoi(engine.ExpandString("{{faker.random_number:3,true}}"))
			require.NoError(t, err)
			assert.GreaterOrEqual(t, n, 100)
			assert.LessOrEqual(t, n, 999)
		}
	})

	t.Run("short text", func(t *testing.T) {
		text := engine.ExpandString("{{faker.text:20}}")
		assert.LessOrEqual(t, len(text), 20)
	})

	t.Run("random_int bounds", func(t *testing.T) {
		assert.Equal(t, "7", engine.ExpandString("{{faker.random_int:7,7}}"))
	})

	t.Run("sentence with zero words", func(t *testing.T) {
		assert.Equal(t, "", engine.ExpandString("{{faker.sentence:0}}"))
	})

	t.Run("boolean certainties", func(t *testing.T) {
		assert.Equal(t, "True", engine.ExpandString("{{faker.boolean:100}}"))
		assert.Equal(t, "False", engine.ExpandString("{{faker.boolean:0}}"))
	})

	t.Run("image_url size", func(t *testing.T) {
		assert.Equal(t, "https://dummyimage.com/64x32", engine.ExpandString("{{faker.image_url:64,32}}"))
	})
}

func TestFaker_CreditCardIsLuhnValid(t *testing.T) {
	engine := New()

	for i := 0; i < 20; i++ {
		number := engine.ExpandString("{{faker.credit_card_number}}")
		require.Len(t, number, 16)

		sum := 0
		for j := len(number) - 1; j >= 0; j-- {
			d := int(number[j] - '0')
			if (len(number)-1-j)%2 == 1 {
				d *= 2
				if d > 9 {
					d -= 9
				}
			}
			sum += d
		}
		assert.Zero(t, sum%10, number)
	}
}

func TestFaker_AllMethodsResolve(t *testing.T) {
	engine := New()
	ns := engine.Faker().Namespace()

	for _, method := range ns.Methods() {
		t.Run(method, func(t *testing.T) {
			got := engine.ExpandString("{{faker." + method + "}}")
			assert.NotContains(t, got, "{{ERROR")
			assert.NotContains(t, got, "{{UNKNOWN")
		})
	}
}
