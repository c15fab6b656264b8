package template

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// randomNamespace draws from the process-wide generator. Unlike faker it is
// not seeded, so values differ between runs.
func randomNamespace() *Namespace {
	return NewNamespace("random").
		Register("random", randomFloat).
		Register("uniform", randomUniform, int64(0), int64(1000)).
		Register("randint", randomInt, int64(1), int64(100)).
		Register("randrange", randomRange, int64(0), int64(100)).
		Register("choice", randomChoice, "option1", "option2", "option3").
		Register("sample", randomSample, "a", "b", "c", "d", "e", int64(3)).
		Register("shuffle", randomShuffle).
		Register("gauss", randomGauss, int64(0), int64(1)).
		Register("normalvariate", randomGauss, int64(0), int64(1)).
		Register("expovariate", randomExpovariate, 1.0).
		Register("triangular", randomTriangular, int64(0), int64(1), 0.5).
		Register("getrandbits", randomBits)
}

func randomFloat(args Args) (any, error) {
	if err := args.atMost(0); err != nil {
		return nil, err
	}
	return rand.Float64(), nil
}

func randomUniform(args Args) (any, error) {
	a, err := args.float(0)
	if err != nil {
		return nil, err
	}
	b, err := args.float(1)
	if err != nil {
		return nil, err
	}
	return a + (b-a)*rand.Float64(), nil
}

// randomInt returns an integer in [a, b], both ends included.
func randomInt(args Args) (any, error) {
	a, err := args.integer(0)
	if err != nil {
		return nil, err
	}
	b, err := args.integer(1)
	if err != nil {
		return nil, err
	}
	if b < a {
		return nil, fmt.Errorf("%w: empty range for randint (%d, %d)", ErrArgumentValue, a, b)
	}
	return a + rand.Int64N(b-a+1), nil
}

// randomRange follows randrange(stop) and randrange(start, stop[, step]).
func randomRange(args Args) (any, error) {
	if err := args.atMost(3); err != nil {
		return nil, err
	}

	var start, stop, step int64 = 0, 0, 1
	var err error
	if len(args) == 1 {
		if stop, err = args.integer(0); err != nil {
			return nil, err
		}
	} else {
		if start, err = args.integer(0); err != nil {
			return nil, err
		}
		if stop, err = args.integer(1); err != nil {
			return nil, err
		}
		if step, err = args.intOr(2, 1); err != nil {
			return nil, err
		}
	}
	if step == 0 {
		return nil, fmt.Errorf("%w: zero step for randrange", ErrArgumentValue)
	}

	var n int64
	if step > 0 {
		n = (stop - start + step - 1) / step
	} else {
		n = (stop - start + step + 1) / step
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: empty range for randrange (%d, %d, %d)", ErrArgumentValue, start, stop, step)
	}
	return start + step*rand.Int64N(n), nil
}

// randomChoice picks one positional argument. A single argument, string or
// not, is the only candidate.
func randomChoice(args Args) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: cannot choose from an empty sequence", ErrMissingArgument)
	}
	return args[rand.IntN(len(args))], nil
}

// randomSample returns k distinct picks. The last argument is k; the rest
// form the population, or its characters when it is a single string.
func randomSample(args Args) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%w: sample needs a population and k", ErrMissingArgument)
	}
	k, err := args.integer(len(args) - 1)
	if err != nil {
		return nil, err
	}

	population := []any(args[:len(args)-1])
	if len(population) == 1 {
		if s, ok := population[0].(string); ok {
			population = population[:0:0]
			for _, c := range s {
				population = append(population, string(c))
			}
		}
	}
	if k < 0 || k > int64(len(population)) {
		return nil, fmt.Errorf("%w: sample larger than population or is negative", ErrArgumentValue)
	}

	pool := make([]any, len(population))
	copy(pool, population)
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:k], nil
}

func randomShuffle(Args) (any, error) {
	return nil, fmt.Errorf("%w: shuffle works in place and returns nothing", ErrUnsupported)
}

func randomGauss(args Args) (any, error) {
	mu, err := args.floatOr(0, 0)
	if err != nil {
		return nil, err
	}
	sigma, err := args.floatOr(1, 1)
	if err != nil {
		return nil, err
	}
	return mu + sigma*rand.NormFloat64(), nil
}

func randomExpovariate(args Args) (any, error) {
	lambd, err := args.floatOr(0, 1)
	if err != nil {
		return nil, err
	}
	if lambd == 0 {
		return nil, fmt.Errorf("%w: lambd must not be zero", ErrArgumentValue)
	}
	return rand.ExpFloat64() / lambd, nil
}

func randomTriangular(args Args) (any, error) {
	low, err := args.floatOr(0, 0)
	if err != nil {
		return nil, err
	}
	high, err := args.floatOr(1, 1)
	if err != nil {
		return nil, err
	}
	if high == low {
		return low, nil
	}
	mode := (low + high) / 2
	if args.has(2) {
		if mode, err = args.float(2); err != nil {
			return nil, err
		}
	}

	u := rand.Float64()
	c := (mode - low) / (high - low)
	if u > c {
		u = 1 - u
		c = 1 - c
		low, high = high, low
	}
	return low + (high-low)*math.Sqrt(u*c), nil
}

func randomBits(args Args) (any, error) {
	k, err := args.integer(0)
	if err != nil {
		return nil, err
	}
	if k < 0 || k > 64 {
		return nil, fmt.Errorf("%w: number of bits must be between 0 and 64", ErrArgumentValue)
	}
	if k == 0 {
		return int64(0), nil
	}
	return rand.Uint64() >> (64 - k), nil
}
