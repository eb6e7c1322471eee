package staticrefl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jward/staticrefl/internal/resolver"
)

// benchPHPSource is a realistic PHP file with an interface, an abstract
// base and a concrete class, for exercising the full extraction pipeline.
const benchPHPSource = `<?php
namespace Bench%[1]d;

use Psr\Log\LoggerInterface;

interface Repository
{
    const PAGE_SIZE = 50;

    public function find($id);
    public function all(array $criteria = [], $limit = self::PAGE_SIZE);
}

/**
 * Shared persistence plumbing.
 */
abstract class BaseRepository implements Repository
{
    protected $table = 'items';
    protected static $instances = 0;

    public function __construct(protected LoggerInterface $logger, private ?string $prefix = null)
    {
        static::$instances++;
    }

    abstract protected function hydrate(array $row);

    public function all(array $criteria = [], $limit = self::PAGE_SIZE)
    {
        $rows = [];
        foreach ($criteria as $key => $value) {
            $rows[] = $this->hydrate([$key => $value]);
        }
        return array_slice($rows, 0, $limit);
    }
}

final class UserRepository extends BaseRepository
{
    const TABLE = 'users';

    public function find($id)
    {
        return $this->hydrate(['id' => $id]);
    }

    protected function hydrate(array $row)
    {
        return (object) $row;
    }

    public function byEmail(string $email, bool &$found = false)
    {
        $found = true;
        return null;
    }
}
`

// writeBenchFiles writes n copies of the bench source in PSR-0 layout.
func writeBenchFiles(b *testing.B, n int) (string, []string) {
	b.Helper()
	root := b.TempDir()
	paths := make([]string, n)
	for i := range n {
		dir := filepath.Join(root, fmt.Sprintf("Bench%d", i))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.Fatal(err)
		}
		paths[i] = filepath.Join(dir, "UserRepository.php")
		if err := os.WriteFile(paths[i], []byte(fmt.Sprintf(benchPHPSource, i)), 0o644); err != nil {
			b.Fatal(err)
		}
	}
	return root, paths
}

func newBenchEngine(b *testing.B, opts ...Option) *Engine {
	b.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	e, err := New(filepath.Join(b.TempDir(), "bench.db"), opts...)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { e.Close() })
	return e
}

func BenchmarkIndexFiles(b *testing.B) {
	for _, parallel := range []bool{false, true} {
		b.Run(fmt.Sprintf("parallel=%v", parallel), func(b *testing.B) {
			_, paths := writeBenchFiles(b, 50)
			ctx := context.Background()
			b.ResetTimer()
			for range b.N {
				b.StopTimer()
				e := newBenchEngine(b, WithParallel(parallel))
				b.StartTimer()
				if err := e.IndexFiles(ctx, paths); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkReflectClass(b *testing.B) {
	root, _ := writeBenchFiles(b, 1)
	ctx := context.Background()
	b.ResetTimer()
	for range b.N {
		b.StopTimer()
		e := newBenchEngine(b, WithResolvers(resolver.NewNaming(root)))
		b.StartTimer()
		if _, err := e.ReflectClass(ctx, `Bench0\UserRepository`); err != nil {
			b.Fatal(err)
		}
	}
}
